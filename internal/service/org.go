package service

import (
	"context"

	"github.com/mmeshcher/payout-system/internal/model"
)

// CreateOrganization создаёт организацию пользователя. Уникальность
// "одна организация на пользователя" обеспечивается хранилищем.
func (s *Service) CreateOrganization(ctx context.Context, userID string, o *model.Organization) (*model.Organization, error) {
	o.UserID = userID

	id, err := s.repo.CreateOrganization(ctx, o)
	if err != nil {
		return nil, err
	}

	return s.repo.GetOrganization(ctx, id, userID)
}

// GetOrganization возвращает организацию пользователя по идентификатору.
func (s *Service) GetOrganization(ctx context.Context, orgID, userID string) (*model.Organization, error) {
	return s.repo.GetOrganization(ctx, orgID, userID)
}

// GetOrganizationByUser возвращает организацию текущего пользователя.
func (s *Service) GetOrganizationByUser(ctx context.Context, userID string) (*model.Organization, error) {
	return s.repo.GetOrganizationByUser(ctx, userID)
}

// OrganizationUpdate содержит изменяемые атрибуты организации.
// Пустые поля трактуются как "не менять".
type OrganizationUpdate struct {
	Name               string
	BusinessType       string
	Country            string
	RegistrationNumber string
	Website            string
	TaxID              string
	PhoneNumber        string
	Street             string
	City               string
	State              string
	Zip                string
}

// UpdateOrganization применяет частичное обновление атрибутов организации.
// Статус KYC и идентификатор отправителя этим путём не изменяются.
func (s *Service) UpdateOrganization(ctx context.Context, orgID, userID string, upd OrganizationUpdate) (*model.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	setNonEmpty(&org.Name, upd.Name)
	setNonEmpty(&org.BusinessType, upd.BusinessType)
	setNonEmpty(&org.Country, upd.Country)
	setNonEmpty(&org.RegistrationNumber, upd.RegistrationNumber)
	setNonEmpty(&org.Website, upd.Website)
	setNonEmpty(&org.TaxID, upd.TaxID)
	setNonEmpty(&org.PhoneNumber, upd.PhoneNumber)
	setNonEmpty(&org.Street, upd.Street)
	setNonEmpty(&org.City, upd.City)
	setNonEmpty(&org.State, upd.State)
	setNonEmpty(&org.Zip, upd.Zip)

	if err := s.repo.UpdateOrganization(ctx, org); err != nil {
		return nil, err
	}

	return org, nil
}

func setNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
