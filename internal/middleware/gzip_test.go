package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"echo":"` + string(body) + `"}`))
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name             string
		requestBody      string
		acceptEncoding   string
		compressRequest  bool
		wantEncoding     string
		wantBodyContains string
	}{
		{
			name:             "compresses response for gzip clients",
			requestBody:      "payout",
			acceptEncoding:   "gzip",
			wantEncoding:     "gzip",
			wantBodyContains: `{"echo":"payout"}`,
		},
		{
			name:             "plain response without accept-encoding",
			requestBody:      "payout",
			acceptEncoding:   "",
			wantEncoding:     "",
			wantBodyContains: `{"echo":"payout"}`,
		},
		{
			name:             "decompresses gzip request body",
			requestBody:      "compressed payout",
			acceptEncoding:   "gzip",
			compressRequest:  true,
			wantEncoding:     "gzip",
			wantBodyContains: `{"echo":"compressed payout"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestBody io.Reader = strings.NewReader(tt.requestBody)
			if tt.compressRequest {
				var buf bytes.Buffer
				gz := gzip.NewWriter(&buf)
				if _, err := gz.Write([]byte(tt.requestBody)); err != nil {
					t.Fatalf("write gzip: %v", err)
				}
				if err := gz.Close(); err != nil {
					t.Fatalf("close gzip: %v", err)
				}
				requestBody = &buf
			}

			req := httptest.NewRequest(http.MethodPost, "/test", requestBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			if tt.compressRequest {
				req.Header.Set("Content-Encoding", "gzip")
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != http.StatusOK {
				t.Fatalf("status: got %d want %d", res.StatusCode, http.StatusOK)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}

			reader := io.Reader(res.Body)
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			body, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(body), tt.wantBodyContains) {
				t.Fatalf("body %q does not contain %q", string(body), tt.wantBodyContains)
			}
		})
	}
}

func TestGzipMiddleware_BadCompressedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")

	w := httptest.NewRecorder()
	GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gzip body, got %d", w.Code)
	}
}
