package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
)

const defaultOrderPurpose = "Payment for services"

// orderStatusMap переводит статусы ордера процессора в локальные статусы
// выплаты. Неизвестные значения оставляют текущий статус без изменений.
var orderStatusMap = map[string]model.PayoutStatus{
	"created":    model.PayoutStatusOrdered,
	"processing": model.PayoutStatusProcessing,
	"completed":  model.PayoutStatusCompleted,
	"failed":     model.PayoutStatusFailed,
	"cancelled":  model.PayoutStatusCancelled,
}

func mapOrderStatus(remote string, current model.PayoutStatus) model.PayoutStatus {
	if status, ok := orderStatusMap[remote]; ok {
		return status
	}
	return current
}

// QuoteInput содержит параметры запроса котировки.
type QuoteInput struct {
	OrganizationID string
	BeneficiaryID  string
	AmountCents    int64
	SourceCurrency string
	TargetCurrency string
}

// CreateQuote запрашивает котировку у процессора и атомарно с её успехом
// создаёт выплату в статусе quoted. Курс и комиссия снимаются из ответа
// процессора и далее не пересчитываются. Выплата не существует до
// успешной котировки.
func (s *Service) CreateQuote(ctx context.Context, userID string, in QuoteInput) (*model.Payout, *mesta.Quote, error) {
	org, err := s.repo.GetOrganization(ctx, in.OrganizationID, userID)
	if err != nil {
		return nil, nil, err
	}

	beneficiary, err := s.repo.GetBeneficiary(ctx, in.BeneficiaryID, userID)
	if err != nil {
		return nil, nil, err
	}
	if beneficiary.OrganizationID != org.ID {
		return nil, nil, ErrBeneficiaryNotLinked
	}

	if org.KYCStatus != model.KYCStatusVerified {
		return nil, nil, ErrOrgNotVerified
	}
	if beneficiary.MestaBeneficiaryID == nil {
		return nil, nil, ErrBeneficiaryNotLinked
	}

	var senderID string
	if org.MestaSenderID != nil {
		senderID = *org.MestaSenderID
	}

	quote, err := s.gateway.CreateQuote(ctx, mesta.QuoteRequest{
		SenderID:       senderID,
		BeneficiaryID:  *beneficiary.MestaBeneficiaryID,
		Amount:         centsToAmount(in.AmountCents),
		SourceCurrency: in.SourceCurrency,
		TargetCurrency: in.TargetCurrency,
	})
	if err != nil {
		return nil, nil, err
	}

	payout := &model.Payout{
		OrganizationID: org.ID,
		BeneficiaryID:  &beneficiary.ID,
		MestaQuoteID:   &quote.ID,
		AmountCents:    in.AmountCents,
		SourceCurrency: in.SourceCurrency,
		TargetCurrency: in.TargetCurrency,
		ExchangeRate:   quote.Rate(),
		FeeCents:       amountToCentsPtr(quote.Fee()),
		Status:         model.PayoutStatusQuoted,
	}

	id, err := s.repo.CreatePayout(ctx, payout)
	if err != nil {
		s.logger.Error("orphaned mesta quote: local save failed after remote call",
			zap.String("mestaQuoteID", quote.ID),
			zap.Error(err))
		return nil, nil, err
	}
	payout.ID = id

	s.logger.Info("quote created",
		zap.String("mestaQuoteID", quote.ID),
		zap.String("payoutID", id))

	return payout, quote, nil
}

// OrderInput содержит параметры создания ордера из котировки.
type OrderInput struct {
	OrganizationID string
	QuoteID        string
	Purpose        string
}

// CreateOrder конвертирует котировку в ордер процессора: выплата переходит
// в статус ordered, в журнал добавляется запись типа payout. Ордер
// создаётся только из выплаты в статусе quoted с установленной котировкой.
// Повторный вызов после частичного сбоя не создаёт вторую запись журнала:
// дедупликация по идентификатору транзакции процессора обеспечивается
// хранилищем.
func (s *Service) CreateOrder(ctx context.Context, userID string, in OrderInput) (*model.Payout, *mesta.Order, error) {
	org, err := s.repo.GetOrganization(ctx, in.OrganizationID, userID)
	if err != nil {
		return nil, nil, err
	}

	payout, err := s.repo.GetPayoutByQuoteID(ctx, in.QuoteID, org.ID)
	if err != nil {
		return nil, nil, err
	}

	if payout.Status != model.PayoutStatusQuoted || payout.MestaQuoteID == nil {
		return nil, nil, ErrPayoutNotQuoted
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = defaultOrderPurpose
	}

	order, err := s.gateway.CreateOrder(ctx, mesta.OrderRequest{
		QuoteID: in.QuoteID,
		Purpose: purpose,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SetPayoutOrdered(ctx, payout.ID, order.ID); err != nil {
		return nil, nil, err
	}
	payout.MestaOrderID = &order.ID
	payout.Status = model.PayoutStatusOrdered

	txID := order.TransactionID
	if txID == "" {
		txID = order.ID
	}

	inserted, err := s.repo.InsertTransaction(ctx, &model.Transaction{
		OrganizationID:     org.ID,
		PayoutID:           &payout.ID,
		MestaTransactionID: txID,
		Type:               model.TransactionTypePayout,
		AmountCents:        payout.AmountCents,
		Currency:           payout.SourceCurrency,
		Status:             "processing",
		Metadata:           map[string]any{"orderId": order.ID},
	})
	if err != nil {
		return nil, nil, err
	}
	if !inserted {
		s.logger.Info("ledger row already exists for transaction",
			zap.String("mestaTransactionID", txID))
	}

	s.logger.Info("order created",
		zap.String("mestaOrderID", order.ID),
		zap.String("payoutID", payout.ID))

	return payout, order, nil
}

// GetOrder возвращает выплату и актуальное состояние ордера процессора.
// Удалённый статус отображается на локальный и сохраняется только при
// изменении; сбой процессора на этом читающем пути оставляет локальное
// состояние нетронутым.
func (s *Service) GetOrder(ctx context.Context, payoutID, userID string) (*model.Payout, *mesta.Order, error) {
	payout, err := s.repo.GetPayout(ctx, payoutID, userID)
	if err != nil {
		return nil, nil, err
	}

	if payout.MestaOrderID == nil {
		return payout, nil, nil
	}

	order, err := s.gateway.GetOrder(ctx, *payout.MestaOrderID)
	if err != nil {
		s.logger.Warn("order status fetch failed, returning stored status",
			zap.String("payoutID", payout.ID), zap.Error(err))
		return payout, nil, nil
	}

	mapped := mapOrderStatus(order.Status, payout.Status)
	if payout.Status != mapped {
		if err := s.repo.UpdatePayoutStatus(ctx, payout.ID, mapped); err != nil {
			return nil, nil, err
		}
		payout.Status = mapped
	}

	return payout, order, nil
}

// CancelOrder отменяет ордер у процессора и переводит выплату в cancelled.
// Итоговый удалённый статус ордера после отмены не перепроверяется.
func (s *Service) CancelOrder(ctx context.Context, payoutID, userID string) (*model.Payout, error) {
	payout, err := s.repo.GetPayout(ctx, payoutID, userID)
	if err != nil {
		return nil, err
	}

	if payout.MestaOrderID == nil {
		return nil, ErrNoOrder
	}

	if err := s.gateway.CancelOrder(ctx, *payout.MestaOrderID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePayoutStatus(ctx, payout.ID, model.PayoutStatusCancelled); err != nil {
		return nil, err
	}
	payout.Status = model.PayoutStatusCancelled

	return payout, nil
}

// ListPayouts возвращает выплаты пользователя.
func (s *Service) ListPayouts(ctx context.Context, userID, orgID string) ([]model.Payout, error) {
	return s.repo.ListPayouts(ctx, userID, orgID)
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

func amountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func amountToCentsPtr(amount *float64) *int64 {
	if amount == nil {
		return nil
	}
	cents := amountToCents(*amount)
	return &cents
}
