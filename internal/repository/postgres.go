// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrgExists возвращается, если у пользователя уже есть организация.
	ErrOrgExists = errors.New("organization already exists for user")
	// ErrOrgNotFound возвращается, если организация не найдена или принадлежит другому пользователю.
	ErrOrgNotFound = errors.New("organization not found")
	// ErrSenderAlreadySet возвращается, если mesta_sender_id уже установлен.
	// Идентификатор отправителя устанавливается не более одного раза.
	ErrSenderAlreadySet = errors.New("mesta sender already linked")
	// ErrBeneficiaryNotFound возвращается, если получатель не найден или недоступен пользователю.
	ErrBeneficiaryNotFound = errors.New("beneficiary not found")
	// ErrPayoutNotFound возвращается, если выплата не найдена или недоступна пользователю.
	ErrPayoutNotFound = errors.New("payout not found")
	// ErrTransactionNotFound возвращается, если транзакция не найдена.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, email, name string, passwordHash []byte) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4)`,
		id, email, name, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

const orgColumns = `id, user_id, name, business_type, country, registration_number, website,
	tax_id, phone_number, street, city, state, zip, mesta_sender_id, kyc_status, created_at, updated_at`

func scanOrganization(row pgx.Row) (*model.Organization, error) {
	var o model.Organization
	err := row.Scan(&o.ID, &o.UserID, &o.Name, &o.BusinessType, &o.Country,
		&o.RegistrationNumber, &o.Website, &o.TaxID, &o.PhoneNumber,
		&o.Street, &o.City, &o.State, &o.Zip,
		&o.MestaSenderID, &o.KYCStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	return &o, nil
}

// CreateOrganization создаёт организацию пользователя. На пользователя
// допускается только одна организация (уникальный индекс по user_id).
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *model.Organization) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO organizations
		 (id, user_id, name, business_type, country, registration_number, website,
		  tax_id, phone_number, street, city, state, zip, kyc_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, o.UserID, o.Name, o.BusinessType, o.Country, o.RegistrationNumber, o.Website,
		o.TaxID, o.PhoneNumber, o.Street, o.City, o.State, o.Zip, string(model.KYCStatusNotStarted),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: user %s", ErrOrgExists, o.UserID)
		}
		return "", fmt.Errorf("create organization: %w", err)
	}
	return id, nil
}

// GetOrganization возвращает организацию пользователя по идентификатору.
func (r *PostgresRepository) GetOrganization(ctx context.Context, orgID, userID string) (*model.Organization, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1 AND user_id = $2`,
		orgID, userID,
	)
	return scanOrganization(row)
}

// GetOrganizationByUser возвращает организацию пользователя.
func (r *PostgresRepository) GetOrganizationByUser(ctx context.Context, userID string) (*model.Organization, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE user_id = $1`,
		userID,
	)
	return scanOrganization(row)
}

// UpdateOrganization обновляет атрибуты организации.
func (r *PostgresRepository) UpdateOrganization(ctx context.Context, o *model.Organization) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET
		 name = $3, business_type = $4, country = $5, registration_number = $6, website = $7,
		 tax_id = $8, phone_number = $9, street = $10, city = $11, state = $12, zip = $13,
		 updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		o.ID, o.UserID, o.Name, o.BusinessType, o.Country, o.RegistrationNumber, o.Website,
		o.TaxID, o.PhoneNumber, o.Street, o.City, o.State, o.Zip,
	)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

// SetMestaSenderID связывает организацию с отправителем процессора.
// Выполняется как compare-and-set: идентификатор записывается только если
// ещё не установлен, иначе возвращается ErrSenderAlreadySet. Это закрывает
// гонку двух конкурентных запросов создания отправителя без удержания
// блокировки на время сетевого вызова.
func (r *PostgresRepository) SetMestaSenderID(ctx context.Context, orgID, senderID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE organizations
		 SET mesta_sender_id = $2, kyc_status = $3, updated_at = now()
		 WHERE id = $1 AND mesta_sender_id IS NULL`,
		orgID, senderID, string(model.KYCStatusPending),
	)
	if err != nil {
		return fmt.Errorf("set sender id: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSenderAlreadySet
	}
	return nil
}

// ListOrganizationIDsWithSender возвращает идентификаторы организаций,
// привязанных к отправителю процессора. Используется фоновой синхронизацией.
func (r *PostgresRepository) ListOrganizationIDsWithSender(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id FROM organizations WHERE mesta_sender_id IS NOT NULL ORDER BY created_at`,
		)
		if err != nil {
			return fmt.Errorf("select organizations for sync: %w", err)
		}
		defer rows.Close()

		ids = ids[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan organization id: %w", err)
			}
			ids = append(ids, id)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateKYCStatus обновляет локальный статус верификации организации.
func (r *PostgresRepository) UpdateKYCStatus(ctx context.Context, orgID string, status model.KYCStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organizations SET kyc_status = $2, updated_at = now() WHERE id = $1`,
		orgID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update kyc status: %w", err)
	}
	return nil
}

const beneficiaryColumns = `b.id, b.organization_id, b.mesta_beneficiary_id, b.first_name, b.last_name,
	b.email, b.phone_number, b.country, b.city, b.address, b.zip_code,
	b.bank_account_name, b.bank_account_number, b.bank_name, b.bank_code,
	b.account_type, b.payment_type, b.additional_details, b.status, b.created_at, b.updated_at`

func scanBeneficiary(row pgx.Row) (*model.Beneficiary, error) {
	var b model.Beneficiary
	err := row.Scan(&b.ID, &b.OrganizationID, &b.MestaBeneficiaryID, &b.FirstName, &b.LastName,
		&b.Email, &b.PhoneNumber, &b.Country, &b.City, &b.Address, &b.ZipCode,
		&b.BankAccountName, &b.BankAccountNumber, &b.BankName, &b.BankCode,
		&b.AccountType, &b.PaymentType, &b.AdditionalDetails, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, fmt.Errorf("scan beneficiary: %w", err)
	}
	return &b, nil
}

// CreateBeneficiary сохраняет получателя после успешного создания на стороне процессора.
func (r *PostgresRepository) CreateBeneficiary(ctx context.Context, b *model.Beneficiary) (string, error) {
	id := uuid.NewString()
	details := b.AdditionalDetails
	if details == nil {
		details = map[string]string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO beneficiaries
		 (id, organization_id, mesta_beneficiary_id, first_name, last_name, email, phone_number,
		  country, city, address, zip_code, bank_account_name, bank_account_number, bank_name,
		  bank_code, account_type, payment_type, additional_details, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		id, b.OrganizationID, b.MestaBeneficiaryID, b.FirstName, b.LastName, b.Email, b.PhoneNumber,
		b.Country, b.City, b.Address, b.ZipCode, b.BankAccountName, b.BankAccountNumber, b.BankName,
		b.BankCode, b.AccountType, b.PaymentType, details, string(b.Status),
	)
	if err != nil {
		return "", fmt.Errorf("create beneficiary: %w", err)
	}
	return id, nil
}

// GetBeneficiary возвращает получателя, доступного указанному пользователю.
func (r *PostgresRepository) GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+beneficiaryColumns+`
		 FROM beneficiaries b
		 JOIN organizations o ON o.id = b.organization_id
		 WHERE b.id = $1 AND o.user_id = $2`,
		beneficiaryID, userID,
	)
	return scanBeneficiary(row)
}

// ListBeneficiaries возвращает получателей пользователя, опционально по организации.
func (r *PostgresRepository) ListBeneficiaries(ctx context.Context, userID, orgID string) ([]model.Beneficiary, error) {
	query := `SELECT ` + beneficiaryColumns + `
		 FROM beneficiaries b
		 JOIN organizations o ON o.id = b.organization_id
		 WHERE o.user_id = $1`
	args := []any{userID}
	if orgID != "" {
		query += ` AND b.organization_id = $2`
		args = append(args, orgID)
	}
	query += ` ORDER BY b.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select beneficiaries: %w", err)
	}
	defer rows.Close()

	var res []model.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateBeneficiary сохраняет изменённые атрибуты получателя.
func (r *PostgresRepository) UpdateBeneficiary(ctx context.Context, b *model.Beneficiary) error {
	details := b.AdditionalDetails
	if details == nil {
		details = map[string]string{}
	}
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE beneficiaries SET
		 first_name = $2, last_name = $3, email = $4, phone_number = $5,
		 country = $6, city = $7, address = $8, zip_code = $9,
		 bank_account_name = $10, bank_account_number = $11, bank_name = $12, bank_code = $13,
		 account_type = $14, payment_type = $15, additional_details = $16, updated_at = now()
		 WHERE id = $1`,
		b.ID, b.FirstName, b.LastName, b.Email, b.PhoneNumber,
		b.Country, b.City, b.Address, b.ZipCode,
		b.BankAccountName, b.BankAccountNumber, b.BankName, b.BankCode,
		b.AccountType, b.PaymentType, details,
	)
	if err != nil {
		return fmt.Errorf("update beneficiary: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}

// UpdateBeneficiaryStatus обновляет статус получателя.
func (r *PostgresRepository) UpdateBeneficiaryStatus(ctx context.Context, beneficiaryID string, status model.BeneficiaryStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE beneficiaries SET status = $2, updated_at = now() WHERE id = $1`,
		beneficiaryID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update beneficiary status: %w", err)
	}
	return nil
}

// DeleteBeneficiary удаляет локальную запись получателя. Ссылки из выплат
// обнуляются на уровне схемы, история выплат сохраняется.
func (r *PostgresRepository) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM beneficiaries WHERE id = $1`,
		beneficiaryID,
	)
	if err != nil {
		return fmt.Errorf("delete beneficiary: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}

const payoutColumns = `p.id, p.organization_id, p.beneficiary_id, p.mesta_quote_id, p.mesta_order_id,
	p.amount, p.source_currency, p.target_currency, p.exchange_rate, p.fee, p.status,
	p.created_at, p.updated_at`

func scanPayout(row pgx.Row) (*model.Payout, error) {
	var p model.Payout
	err := row.Scan(&p.ID, &p.OrganizationID, &p.BeneficiaryID, &p.MestaQuoteID, &p.MestaOrderID,
		&p.AmountCents, &p.SourceCurrency, &p.TargetCurrency, &p.ExchangeRate, &p.FeeCents, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("scan payout: %w", err)
	}
	return &p, nil
}

// CreatePayout сохраняет выплату, созданную вместе с котировкой процессора.
func (r *PostgresRepository) CreatePayout(ctx context.Context, p *model.Payout) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payouts
		 (id, organization_id, beneficiary_id, mesta_quote_id, mesta_order_id,
		  amount, source_currency, target_currency, exchange_rate, fee, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, p.OrganizationID, p.BeneficiaryID, p.MestaQuoteID, p.MestaOrderID,
		p.AmountCents, p.SourceCurrency, p.TargetCurrency, p.ExchangeRate, p.FeeCents, string(p.Status),
	)
	if err != nil {
		return "", fmt.Errorf("create payout: %w", err)
	}
	return id, nil
}

// GetPayout возвращает выплату, доступную указанному пользователю.
func (r *PostgresRepository) GetPayout(ctx context.Context, payoutID, userID string) (*model.Payout, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+payoutColumns+`
		 FROM payouts p
		 JOIN organizations o ON o.id = p.organization_id
		 WHERE p.id = $1 AND o.user_id = $2`,
		payoutID, userID,
	)
	return scanPayout(row)
}

// GetPayoutByQuoteID возвращает выплату по идентификатору котировки процессора.
func (r *PostgresRepository) GetPayoutByQuoteID(ctx context.Context, quoteID, orgID string) (*model.Payout, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+payoutColumns+`
		 FROM payouts p
		 WHERE p.mesta_quote_id = $1 AND p.organization_id = $2`,
		quoteID, orgID,
	)
	return scanPayout(row)
}

// ListPayouts возвращает выплаты пользователя, опционально по организации.
func (r *PostgresRepository) ListPayouts(ctx context.Context, userID, orgID string) ([]model.Payout, error) {
	query := `SELECT ` + payoutColumns + `
		 FROM payouts p
		 JOIN organizations o ON o.id = p.organization_id
		 WHERE o.user_id = $1`
	args := []any{userID}
	if orgID != "" {
		query += ` AND p.organization_id = $2`
		args = append(args, orgID)
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select payouts: %w", err)
	}
	defer rows.Close()

	var res []model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SetPayoutOrdered переводит выплату в статус ordered и записывает
// идентификатор ордера. Обновляется только выплата в статусе quoted с
// установленной котировкой: переход draft/quoted → completed минуя
// ordered невозможен.
func (r *PostgresRepository) SetPayoutOrdered(ctx context.Context, payoutID, orderID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE payouts
		 SET mesta_order_id = $2, status = $3, updated_at = now()
		 WHERE id = $1 AND status = $4 AND mesta_quote_id IS NOT NULL`,
		payoutID, orderID, string(model.PayoutStatusOrdered), string(model.PayoutStatusQuoted),
	)
	if err != nil {
		return fmt.Errorf("set payout ordered: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPayoutNotFound
	}
	return nil
}

// UpdatePayoutStatus обновляет статус выплаты.
func (r *PostgresRepository) UpdatePayoutStatus(ctx context.Context, payoutID string, status model.PayoutStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payouts SET status = $2, updated_at = now() WHERE id = $1`,
		payoutID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	return nil
}

const transactionColumns = `t.id, t.organization_id, t.payout_id, t.mesta_transaction_id,
	t.type, t.amount, t.currency, t.status, t.reference, t.metadata, t.created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.OrganizationID, &t.PayoutID, &t.MestaTransactionID,
		&t.Type, &t.AmountCents, &t.Currency, &t.Status, &t.Reference, &t.Metadata, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return &t, nil
}

// InsertTransaction вставляет запись журнала, если транзакция процессора
// ещё не зарегистрирована. Возвращает признак фактической вставки.
// Дедупликация держится на уникальном индексе mesta_transaction_id:
// конкурентные вставки для одного идентификатора безопасны.
func (r *PostgresRepository) InsertTransaction(ctx context.Context, t *model.Transaction) (bool, error) {
	id := uuid.NewString()
	metadata := t.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO transactions
		 (id, organization_id, payout_id, mesta_transaction_id, type, amount, currency, status, reference, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (mesta_transaction_id) DO NOTHING`,
		id, t.OrganizationID, t.PayoutID, t.MestaTransactionID, string(t.Type),
		t.AmountCents, t.Currency, t.Status, t.Reference, metadata,
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// GetTransactionByMestaID возвращает запись журнала по идентификатору транзакции процессора.
func (r *PostgresRepository) GetTransactionByMestaID(ctx context.Context, mestaTxID string) (*model.Transaction, error) {
	var t *model.Transaction
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions t WHERE t.mesta_transaction_id = $1`,
			mestaTxID,
		)
		var scanErr error
		t, scanErr = scanTransaction(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransaction возвращает запись журнала по идентификатору в рамках
// организаций пользователя.
func (r *PostgresRepository) GetTransaction(ctx context.Context, transactionID, userID string) (*model.Transaction, error) {
	var t *model.Transaction
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+transactionColumns+`
			 FROM transactions t
			 JOIN organizations o ON o.id = t.organization_id
			 WHERE t.id = $1 AND o.user_id = $2`,
			transactionID, userID,
		)
		var scanErr error
		t, scanErr = scanTransaction(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTransactionStatus обновляет статус записи журнала. Остальные поля
// после вставки не мутируются.
func (r *PostgresRepository) UpdateTransactionStatus(ctx context.Context, transactionID, status string) error {
	var err error
	retryErr := r.withRetry(ctx, func() error {
		_, err = r.pool.Exec(ctx,
			`UPDATE transactions SET status = $2 WHERE id = $1`,
			transactionID, status,
		)
		return err
	})
	if retryErr != nil {
		return fmt.Errorf("update transaction status: %w", retryErr)
	}
	return nil
}

// TransactionFilter задаёт параметры выборки журнала транзакций.
type TransactionFilter struct {
	OrgID  string
	Type   string
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// ListTransactions возвращает записи журнала пользователя с учётом фильтров.
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		 FROM transactions t
		 JOIN organizations o ON o.id = t.organization_id
		 WHERE o.user_id = $1`
	args := []any{userID}

	if filter.OrgID != "" {
		args = append(args, filter.OrgID)
		query += fmt.Sprintf(` AND t.organization_id = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND t.type = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND t.status = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND t.created_at >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND t.created_at <= $%d`, len(args))
	}

	query += ` ORDER BY t.created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// TransactionSummaryRow содержит агрегат журнала по одному статусу.
type TransactionSummaryRow struct {
	Status      string
	Count       int64
	AmountCents int64
}

// GetTransactionSummary возвращает агрегаты журнала пользователя по статусам.
func (r *PostgresRepository) GetTransactionSummary(ctx context.Context, userID string) ([]TransactionSummaryRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.status, COUNT(*), COALESCE(SUM(t.amount), 0)
		 FROM transactions t
		 JOIN organizations o ON o.id = t.organization_id
		 WHERE o.user_id = $1
		 GROUP BY t.status`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select summary: %w", err)
	}
	defer rows.Close()

	var res []TransactionSummaryRow
	for rows.Next() {
		var row TransactionSummaryRow
		if err := rows.Scan(&row.Status, &row.Count, &row.AmountCents); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		res = append(res, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
