package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
)

// pool is the subset of *pgxpool.Pool the repository needs; pgxmock satisfies it in tests.
type pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

const accountColumns = `id::text, email, password_hash, name, is_verified,
		verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at,
		created_at, updated_at`

type AccountRepository struct {
	pool pool
}

func NewAccountRepository(p pool) *AccountRepository {
	return &AccountRepository{pool: p}
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, is_verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at, updated_at
	`, a.Email, a.PasswordHash, a.Name, a.IsVerified)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return oops.With("operation", "insert account").With("email", a.Email).Wrap(err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1::uuid`, id)
	a, err := scanAccount(row)
	if errors.Is(err, repository.ErrNotFound) || isMalformedID(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get account by id").With("id", id).Wrap(err)
	}
	return a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	a, err := scanAccount(row)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, oops.With("operation", "get account by email").With("email", email).Wrap(err)
	}
	return a, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *entity.Account) error {
	a.UpdatedAt = time.Now().UTC()

	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET name = $1, password_hash = $2, is_verified = $3,
		    verify_otp = $4, verify_otp_expires_at = $5,
		    reset_otp = $6, reset_otp_expires_at = $7,
		    updated_at = $8
		WHERE id = $9::uuid
	`, a.Name, a.PasswordHash, a.IsVerified,
		a.VerifyOTP, toMillis(a.VerifyOTPExpiresAt),
		a.ResetOTP, toMillis(a.ResetOTPExpiresAt),
		a.UpdatedAt, a.ID)
	if isMalformedID(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return oops.With("operation", "update account").With("id", a.ID).Wrap(err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// isMalformedID reports a uuid cast failure; such an id cannot name any row.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	var verifyExp, resetExp int64
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.IsVerified,
		&a.VerifyOTP, &verifyExp, &a.ResetOTP, &resetExp,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	a.VerifyOTPExpiresAt = fromMillis(verifyExp)
	a.ResetOTPExpiresAt = fromMillis(resetExp)
	return a, nil
}

// OTP expiries are stored as unix milliseconds, 0 meaning no challenge.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
