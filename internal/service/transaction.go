package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
)

// GetTransaction возвращает запись журнала пользователя по идентификатору.
func (s *Service) GetTransaction(ctx context.Context, transactionID, userID string) (*model.Transaction, error) {
	return s.repo.GetTransaction(ctx, transactionID, userID)
}

// ListTransactions возвращает записи журнала пользователя с учётом фильтров.
func (s *Service) ListTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

// GetTransactionSummary возвращает агрегаты журнала по статусам.
func (s *Service) GetTransactionSummary(ctx context.Context, userID string) ([]repository.TransactionSummaryRow, error) {
	return s.repo.GetTransactionSummary(ctx, userID)
}

// ExportTransactionsCSV выгружает журнал транзакций пользователя в CSV.
func (s *Service) ExportTransactionsCSV(ctx context.Context, userID string, filter repository.TransactionFilter) (string, error) {
	txs, err := s.repo.ListTransactions(ctx, userID, filter)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"ID", "Date", "Type", "Amount", "Currency", "Status", "Reference", "Mesta ID"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range txs {
		record := []string{
			tx.ID,
			tx.CreatedAt.Format(time.RFC3339),
			string(tx.Type),
			strconv.FormatFloat(centsToAmount(tx.AmountCents), 'f', 2, 64),
			tx.Currency,
			tx.Status,
			tx.Reference,
			tx.MestaTransactionID,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	return sb.String(), nil
}
