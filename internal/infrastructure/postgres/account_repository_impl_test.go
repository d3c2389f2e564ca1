package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
)

var accountRowColumns = []string{
	"id", "email", "password_hash", "name", "is_verified",
	"verify_otp", "verify_otp_expires_at", "reset_otp", "reset_otp_expires_at",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return NewAccountRepository(mock), mock
}

func TestAccountRepository_Create(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantID    string
	}{
		{
			name: "assigns id and timestamps",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs("a@x.com", "hash", "A", false).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
						AddRow("0b6f3c1e-1111-4a4a-9c9c-000000000001", now, now))
			},
			wantID: "0b6f3c1e-1111-4a4a-9c9c-000000000001",
		},
		{
			name: "unique violation maps to duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs("a@x.com", "hash", "A", false).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: repository.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setupMock(mock)

			a := &entity.Account{Name: "A", Email: "a@x.com", PasswordHash: "hash"}
			err := repo.Create(context.Background(), a)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, a.ID)
				assert.Equal(t, now, a.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestAccountRepository_Create_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs("a@x.com", "hash", "A", false).
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), &entity.Account{Name: "A", Email: "a@x.com", PasswordHash: "hash"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exp := now.Add(time.Hour)

	t.Run("found with outstanding verify code", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM accounts WHERE email = \$1`).
			WithArgs("a@x.com").
			WillReturnRows(pgxmock.NewRows(accountRowColumns).
				AddRow("id-1", "a@x.com", "hash", "A", false, "123456", exp.UnixMilli(), "", int64(0), now, now))

		got, err := repo.GetByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "123456", got.VerifyOTP)
		assert.True(t, got.VerifyOTPExpiresAt.Equal(exp))
		assert.Empty(t, got.ResetOTP)
		assert.True(t, got.ResetOTPExpiresAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM accounts WHERE email = \$1`).
			WithArgs("nobody@x.com").
			WillReturnRows(pgxmock.NewRows(accountRowColumns))

		_, err := repo.GetByEmail(context.Background(), "nobody@x.com")
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM accounts WHERE id = \$1::uuid`).
		WithArgs("id-1").
		WillReturnRows(pgxmock.NewRows(accountRowColumns).
			AddRow("id-1", "a@x.com", "hash", "A", true, "", int64(0), "", int64(0), now, now))

	got, err := repo.GetByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.True(t, got.VerifyOTPExpiresAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByID_MalformedID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM accounts WHERE id = \$1::uuid`).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Update(t *testing.T) {
	exp := time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)
	a := &entity.Account{
		ID: "id-1", Name: "A", Email: "a@x.com", PasswordHash: "hash",
		ResetOTP: "654321", ResetOTPExpiresAt: exp,
	}

	t.Run("writes otp expiry as millis", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE accounts`).
			WithArgs("A", "hash", false, "", int64(0), "654321", exp.UnixMilli(), pgxmock.AnyArg(), "id-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Update(context.Background(), a))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE accounts`).
			WithArgs("A", "hash", false, "", int64(0), "654321", exp.UnixMilli(), pgxmock.AnyArg(), "id-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		require.ErrorIs(t, repo.Update(context.Background(), a), repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id maps to not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`WHERE id = \$9::uuid`).
			WithArgs("A", "hash", false, "", int64(0), "654321", exp.UnixMilli(), pgxmock.AnyArg(), "id-1").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

		require.ErrorIs(t, repo.Update(context.Background(), a), repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Ping(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectPing()

	require.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
