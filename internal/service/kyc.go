package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
)

// senderStatusMap переводит словарь статусов отправителя процессора в
// локальные статусы KYC. Неизвестные значения трактуются как pending.
var senderStatusMap = map[string]model.KYCStatus{
	"created":      model.KYCStatusPending,
	"pending":      model.KYCStatusPending,
	"under_review": model.KYCStatusUnderReview,
	"verified":     model.KYCStatusVerified,
	"approved":     model.KYCStatusVerified,
	"rejected":     model.KYCStatusRejected,
	"failed":       model.KYCStatusRejected,
}

func mapSenderStatus(remote string) model.KYCStatus {
	if status, ok := senderStatusMap[remote]; ok {
		return status
	}
	return model.KYCStatusPending
}

// CreateSender создаёт отправителя в процессоре и привязывает его к
// организации. Для организации с уже установленным mesta_sender_id операция
// завершается ErrSenderExists без обращения к процессору. Локальная запись
// обновляется только после успешного удалённого вызова.
func (s *Service) CreateSender(ctx context.Context, orgID, userID string, details mesta.SenderDetails) (*model.Organization, *mesta.Sender, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, nil, err
	}

	if org.MestaSenderID != nil {
		return nil, nil, ErrSenderExists
	}

	sender, err := s.gateway.CreateSender(ctx, details)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SetMestaSenderID(ctx, org.ID, sender.ID); err != nil {
		if errors.Is(err, repository.ErrSenderAlreadySet) {
			// Конкурентный запрос успел привязать другого отправителя.
			// Созданный здесь удалённый отправитель остаётся сиротой.
			s.logger.Warn("orphaned mesta sender after concurrent create",
				zap.String("orgID", org.ID),
				zap.String("mestaSenderID", sender.ID))
			return nil, nil, ErrSenderExists
		}
		return nil, nil, err
	}

	org.MestaSenderID = &sender.ID
	org.KYCStatus = model.KYCStatusPending

	s.logger.Info("created mesta sender",
		zap.String("orgID", org.ID),
		zap.String("mestaSenderID", sender.ID))

	return org, sender, nil
}

// GetKYCStatus возвращает актуальный статус верификации организации.
// Для организации без отправителя возвращается not_started без похода к
// процессору. Ошибка процессора на этом читающем пути не прерывает запрос:
// возвращается сохранённый статус.
func (s *Service) GetKYCStatus(ctx context.Context, orgID, userID string) (*model.Organization, *mesta.Sender, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, nil, err
	}

	if org.MestaSenderID == nil {
		org.KYCStatus = model.KYCStatusNotStarted
		return org, nil, nil
	}

	sender, err := s.gateway.GetSender(ctx, *org.MestaSenderID)
	if err != nil {
		s.logger.Warn("kyc status fetch failed, returning stored status",
			zap.String("orgID", org.ID), zap.Error(err))
		return org, nil, nil
	}

	mapped := mapSenderStatus(sender.EffectiveStatus())
	if org.KYCStatus != mapped {
		if err := s.repo.UpdateKYCStatus(ctx, org.ID, mapped); err != nil {
			return nil, nil, err
		}
		org.KYCStatus = mapped
	}

	return org, sender, nil
}

// UploadDocument загружает KYC-документ для отправителя организации.
func (s *Service) UploadDocument(ctx context.Context, orgID, userID string, doc mesta.DocumentUpload) (*mesta.UploadedDocument, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if org.MestaSenderID == nil {
		return nil, ErrSenderNotCreated
	}

	uploaded, err := s.gateway.UploadDocument(ctx, *org.MestaSenderID, doc)
	if err != nil {
		return nil, err
	}

	s.logger.Info("uploaded kyc document",
		zap.String("orgID", org.ID),
		zap.String("documentID", uploaded.ID))

	return uploaded, nil
}

// SubmitForVerification отправляет отправителя организации на верификацию.
// Процессор обрабатывает заявку асинхронно, поэтому локальный статус
// переводится в under_review сразу после успешного вызова.
func (s *Service) SubmitForVerification(ctx context.Context, orgID, userID string) (*model.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if org.MestaSenderID == nil {
		return nil, ErrSenderNotCreated
	}

	if err := s.gateway.VerifySender(ctx, *org.MestaSenderID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateKYCStatus(ctx, org.ID, model.KYCStatusUnderReview); err != nil {
		return nil, err
	}
	org.KYCStatus = model.KYCStatusUnderReview

	s.logger.Info("submitted sender for verification",
		zap.String("orgID", org.ID),
		zap.String("mestaSenderID", *org.MestaSenderID))

	return org, nil
}
