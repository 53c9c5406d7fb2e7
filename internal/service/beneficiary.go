package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
)

// CreateBeneficiary регистрирует получателя в процессоре и сохраняет
// локальную запись. Организация должна быть верифицирована: иначе операция
// завершается ErrOrgNotVerified без единого удалённого вызова. Удалённый
// вызов всегда предшествует локальной записи; если локальная запись не
// удалась, удалённый получатель остаётся сиротой, что логируется, но не
// маскируется.
func (s *Service) CreateBeneficiary(ctx context.Context, orgID, userID string, details mesta.BeneficiaryDetails) (*model.Beneficiary, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if org.KYCStatus != model.KYCStatusVerified {
		return nil, ErrOrgNotVerified
	}

	if org.MestaSenderID != nil {
		details.SenderID = *org.MestaSenderID
	}

	remote, err := s.gateway.CreateBeneficiary(ctx, details)
	if err != nil {
		return nil, err
	}

	beneficiary := &model.Beneficiary{
		OrganizationID:     org.ID,
		MestaBeneficiaryID: &remote.ID,
		FirstName:          details.FirstName,
		LastName:           details.LastName,
		Email:              details.Email,
		PhoneNumber:        details.PhoneNumber,
		Country:            details.Address.Country,
		City:               details.Address.City,
		Address:            details.Address.Street,
		ZipCode:            details.Address.PostalCode,
		BankAccountName:    details.BankAccountName,
		BankAccountNumber:  details.BankAccountNumber,
		BankName:           details.BankName,
		BankCode:           details.BankCode,
		AccountType:        details.AccountType,
		PaymentType:        details.PaymentType,
		AdditionalDetails:  details.AdditionalDetails,
		Status:             model.BeneficiaryStatusPending,
	}

	id, err := s.repo.CreateBeneficiary(ctx, beneficiary)
	if err != nil {
		s.logger.Error("orphaned mesta beneficiary: local save failed after remote create",
			zap.String("orgID", org.ID),
			zap.String("mestaBeneficiaryID", remote.ID),
			zap.Error(err))
		return nil, err
	}
	beneficiary.ID = id

	s.logger.Info("created beneficiary",
		zap.String("beneficiaryID", id),
		zap.String("mestaBeneficiaryID", remote.ID))

	return beneficiary, nil
}

// GetBeneficiary возвращает получателя, доступного пользователю.
func (s *Service) GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error) {
	return s.repo.GetBeneficiary(ctx, beneficiaryID, userID)
}

// ListBeneficiaries возвращает получателей пользователя.
func (s *Service) ListBeneficiaries(ctx context.Context, userID, orgID string) ([]model.Beneficiary, error) {
	return s.repo.ListBeneficiaries(ctx, userID, orgID)
}

// BeneficiaryUpdate содержит изменяемые атрибуты получателя.
// Пустые поля трактуются как "не менять".
type BeneficiaryUpdate struct {
	FirstName         string
	LastName          string
	Email             string
	PhoneNumber       string
	Country           string
	City              string
	Address           string
	ZipCode           string
	BankAccountName   string
	BankAccountNumber string
	BankCode          string
	BankName          string
	AdditionalDetails map[string]string
}

// mestaUpdatePayload собирает тело частичного обновления получателя.
// В процессор уходят только заполненные поля.
func (u BeneficiaryUpdate) mestaUpdatePayload() map[string]any {
	payload := map[string]any{}
	putNonEmptyField(payload, "first_name", u.FirstName)
	putNonEmptyField(payload, "last_name", u.LastName)
	putNonEmptyField(payload, "email", u.Email)
	putNonEmptyField(payload, "phone_number", u.PhoneNumber)
	putNonEmptyField(payload, "country", u.Country)
	putNonEmptyField(payload, "city", u.City)
	putNonEmptyField(payload, "address", u.Address)
	putNonEmptyField(payload, "zip_code", u.ZipCode)
	putNonEmptyField(payload, "bank_account_name", u.BankAccountName)
	putNonEmptyField(payload, "bank_account_number", u.BankAccountNumber)
	return payload
}

func putNonEmptyField(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// UpdateBeneficiary применяет частичное обновление: сначала процессор
// (если есть что отправлять и получатель привязан), затем локальная запись.
func (s *Service) UpdateBeneficiary(ctx context.Context, beneficiaryID, userID string, upd BeneficiaryUpdate) (*model.Beneficiary, error) {
	beneficiary, err := s.repo.GetBeneficiary(ctx, beneficiaryID, userID)
	if err != nil {
		return nil, err
	}

	payload := upd.mestaUpdatePayload()
	if beneficiary.MestaBeneficiaryID != nil && len(payload) > 0 {
		if _, err := s.gateway.UpdateBeneficiary(ctx, *beneficiary.MestaBeneficiaryID, payload); err != nil {
			return nil, err
		}
	}

	setNonEmpty(&beneficiary.FirstName, upd.FirstName)
	setNonEmpty(&beneficiary.LastName, upd.LastName)
	setNonEmpty(&beneficiary.Email, upd.Email)
	setNonEmpty(&beneficiary.PhoneNumber, upd.PhoneNumber)
	setNonEmpty(&beneficiary.Country, upd.Country)
	setNonEmpty(&beneficiary.City, upd.City)
	setNonEmpty(&beneficiary.Address, upd.Address)
	setNonEmpty(&beneficiary.ZipCode, upd.ZipCode)
	setNonEmpty(&beneficiary.BankAccountName, upd.BankAccountName)
	setNonEmpty(&beneficiary.BankAccountNumber, upd.BankAccountNumber)
	setNonEmpty(&beneficiary.BankCode, upd.BankCode)
	setNonEmpty(&beneficiary.BankName, upd.BankName)
	if len(upd.AdditionalDetails) > 0 {
		if beneficiary.AdditionalDetails == nil {
			beneficiary.AdditionalDetails = map[string]string{}
		}
		for k, v := range upd.AdditionalDetails {
			beneficiary.AdditionalDetails[k] = v
		}
	}

	if err := s.repo.UpdateBeneficiary(ctx, beneficiary); err != nil {
		return nil, err
	}

	return beneficiary, nil
}

// RemoveBeneficiary удаляет получателя. Удаление на стороне процессора
// выполняется по возможности: его сбой логируется и не блокирует локальное
// удаление, источник истины о доступности получателя — локальная запись.
func (s *Service) RemoveBeneficiary(ctx context.Context, beneficiaryID, userID string) error {
	beneficiary, err := s.repo.GetBeneficiary(ctx, beneficiaryID, userID)
	if err != nil {
		return err
	}

	if beneficiary.MestaBeneficiaryID != nil {
		if err := s.gateway.DeleteBeneficiary(ctx, *beneficiary.MestaBeneficiaryID); err != nil {
			s.logger.Warn("failed to delete mesta beneficiary",
				zap.String("mestaBeneficiaryID", *beneficiary.MestaBeneficiaryID),
				zap.Error(err))
		}
	}

	return s.repo.DeleteBeneficiary(ctx, beneficiary.ID)
}

// VerifyBeneficiary запускает верификацию получателя на стороне процессора
// и переводит локальный статус в verifying. Дальнейшее продвижение статуса
// выполняет общий путь синхронизации.
func (s *Service) VerifyBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error) {
	beneficiary, err := s.repo.GetBeneficiary(ctx, beneficiaryID, userID)
	if err != nil {
		return nil, err
	}

	if beneficiary.MestaBeneficiaryID == nil {
		return nil, ErrBeneficiaryNotLinked
	}

	if err := s.gateway.VerifyBeneficiary(ctx, *beneficiary.MestaBeneficiaryID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBeneficiaryStatus(ctx, beneficiary.ID, model.BeneficiaryStatusVerifying); err != nil {
		return nil, err
	}
	beneficiary.Status = model.BeneficiaryStatusVerifying

	return beneficiary, nil
}
