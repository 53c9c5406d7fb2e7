package service

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
)

// SyncResult содержит счётчики прогона синхронизации журнала.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SyncTransactions забирает ленту транзакций мерчанта и сливает её в
// локальный журнал. Операция идемпотентна: повторный прогон по
// неизменившейся ленте не порождает ни вставок, ни обновлений.
func (s *Service) SyncTransactions(ctx context.Context, orgID, userID string) (SyncResult, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return SyncResult{}, err
	}

	txs, err := s.gateway.ListTransactions(ctx, nil)
	if err != nil {
		return SyncResult{}, err
	}

	return s.applyTransactions(ctx, org.ID, txs)
}

// applyTransactions сливает список удалённых транзакций в журнал: для
// отсутствующих создаётся запись с полным снимком ответа процессора, у
// существующих обновляется только отличающийся статус.
func (s *Service) applyTransactions(ctx context.Context, orgID string, txs []mesta.Transaction) (SyncResult, error) {
	var res SyncResult

	for _, remote := range txs {
		if remote.ID == "" {
			continue
		}

		existing, err := s.repo.GetTransactionByMestaID(ctx, remote.ID)
		switch {
		case err == nil:
			if existing.Status != remote.Status {
				if err := s.repo.UpdateTransactionStatus(ctx, existing.ID, remote.Status); err != nil {
					return res, err
				}
				res.Updated++
			}
		case errors.Is(err, repository.ErrTransactionNotFound):
			txType := model.TransactionType(remote.Type)
			if txType == "" {
				txType = model.TransactionTypePayout
			}

			inserted, err := s.repo.InsertTransaction(ctx, &model.Transaction{
				OrganizationID:     orgID,
				MestaTransactionID: remote.ID,
				Type:               txType,
				AmountCents:        amountToCents(remote.Amount),
				Currency:           remote.Currency,
				Status:             remote.Status,
				Reference:          remote.Reference,
				Metadata:           remote.Raw,
			})
			if err != nil {
				return res, err
			}
			if inserted {
				res.Created++
			}
		default:
			return res, err
		}
	}

	s.logger.Info("transaction sync finished",
		zap.String("orgID", orgID),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated))

	return res, nil
}

// StartTransactionSync запускает фоновую синхронизацию журнала транзакций
// для всех организаций, привязанных к процессору. Каждый прогон выполняется
// как единое целое; сбой посреди прогона оставляет уже обработанные записи
// зафиксированными, остальное подберёт следующий прогон.
func (s *Service) StartTransactionSync(ctx context.Context, interval time.Duration) {
	if s.gateway == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncAllOrganizations(ctx)
			}
		}
	}()
}

// syncAllOrganizations прогоняет синхронизацию по всем привязанным
// организациям. Лента мерчанта общая: процессор не фильтрует транзакции
// по организации, поэтому новая запись закрепляется за той организацией,
// чей прогон обработал её первым (повторные прогоны её не переназначают).
func (s *Service) syncAllOrganizations(ctx context.Context) {
	orgIDs, err := s.repo.ListOrganizationIDsWithSender(ctx)
	if err != nil {
		s.logger.Warn("list organizations for sync failed", zap.Error(err))
		return
	}

	for _, orgID := range orgIDs {
		txs, err := s.fetchTransactionsWithRetry(ctx)
		if err != nil {
			// Читающий путь: локальное состояние не трогаем, дождёмся
			// следующего прогона.
			s.logger.Warn("transaction feed fetch failed",
				zap.String("orgID", orgID), zap.Error(err))
			continue
		}

		if _, err := s.applyTransactions(ctx, orgID, txs); err != nil {
			s.logger.Warn("transaction sync failed",
				zap.String("orgID", orgID), zap.Error(err))
		}
	}
}

// fetchTransactionsWithRetry повторяет чтение ленты при временных сбоях
// процессора. Повторы допустимы только здесь: чтение идемпотентно.
func (s *Service) fetchTransactionsWithRetry(ctx context.Context) ([]mesta.Transaction, error) {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	var txs []mesta.Transaction
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		txs, err = s.gateway.ListTransactions(ctx, nil)
		if err != nil && isTransientUpstream(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// isTransientUpstream сообщает, стоит ли повторять чтение: таймауты и
// серверные ошибки процессора считаются временными.
func isTransientUpstream(err error) bool {
	if errors.Is(err, mesta.ErrTimeout) {
		return true
	}
	var apiErr *mesta.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}
