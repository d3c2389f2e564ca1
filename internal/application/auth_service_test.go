package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-auth-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
	tpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

type fakeNotifier struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, job mailer.EmailJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
	return n.err
}

func (n *fakeNotifier) sent() []mailer.EmailJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.EmailJob(nil), n.jobs...)
}

type fixture struct {
	svc      *AuthService
	repo     *memory.AccountRepository
	notifier *fakeNotifier
	now      time.Time
	codes    []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.NewAccountRepository(),
		notifier: &fakeNotifier{},
		now:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		codes:    []string{"111111", "222222", "333333", "444444"},
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f.svc = NewAuthService(
		f.repo,
		helpers.NewBcryptHasher(bcrypt.MinCost),
		helpers.NewJWTManager("test-secret", time.Hour),
		f.notifier,
		logger,
		WithClock(func() time.Time { return f.now }),
		WithOTPGenerator(func() (string, error) {
			code := f.codes[0]
			f.codes = f.codes[1:]
			return code, nil
		}),
	)
	return f
}

func (f *fixture) register(t *testing.T) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	f.svc.Wait()
	return res
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.svc.Wait()

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.Account.Email)
	assert.False(t, res.Account.IsAccountVerified)

	stored, err := f.repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)
	assert.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, "s3cret-pass"))

	jobs := f.notifier.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, tpl.Welcome, jobs[0].Template)
	assert.Equal(t, "alice@example.com", jobs[0].To)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []RegisterInput{
		{Email: "a@x.com", Password: "p"},
		{Name: "A", Password: "p"},
		{Name: "A", Email: "a@x.com"},
		{Name: "  ", Email: "a@x.com", Password: "p"},
	}
	for _, in := range cases {
		_, err := f.svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 0, f.repo.Len())
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "alice@example.com", Password: "x"})
	require.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 1, f.repo.Len())
}

func TestRegister_NotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	res := f.register(t)
	f.svc.Wait()

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, 1, f.repo.Len())
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: strings.Repeat("x", 80)})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.repo.Len())
	assert.Empty(t, f.notifier.sent())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, res.Account.ID)

	claims, err := f.svc.JWT.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, claims.UserID)

	_, err = f.svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = f.svc.Login(ctx, "", "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmailVerificationFlow(t *testing.T) {
	f := newFixture(t)
	id := f.register(t).Account.ID
	ctx := context.Background()

	exp, err := f.svc.RequestEmailVerification(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(time.Hour), exp)
	f.svc.Wait()

	jobs := f.notifier.sent()
	require.Len(t, jobs, 2)
	assert.Equal(t, tpl.VerifyOTP, jobs[1].Template)
	assert.Equal(t, "111111", jobs[1].Data["Code"])

	err = f.svc.ConfirmEmailVerification(ctx, id, "999999")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	require.NoError(t, f.svc.ConfirmEmailVerification(ctx, id, "111111"))

	ok, err := f.svc.IsVerified(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := f.repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.VerifyOTP)
	assert.True(t, stored.VerifyOTPExpiresAt.IsZero())

	assert.ErrorIs(t, f.svc.ConfirmEmailVerification(ctx, id, "111111"), ErrAlreadyVerified)
	_, err = f.svc.RequestEmailVerification(ctx, id)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestEmailVerification_NotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	id := f.register(t).Account.ID
	ctx := context.Background()
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.RequestEmailVerification(ctx, id)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Len(t, f.notifier.sent(), 2)
	require.NoError(t, f.svc.ConfirmEmailVerification(ctx, id, "111111"))
}

func TestEmailVerification_NoOutstandingCode(t *testing.T) {
	f := newFixture(t)
	id := f.register(t).Account.ID

	err := f.svc.ConfirmEmailVerification(context.Background(), id, "111111")
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestEmailVerification_Expiry(t *testing.T) {
	f := newFixture(t)
	id := f.register(t).Account.ID
	ctx := context.Background()

	_, err := f.svc.RequestEmailVerification(ctx, id)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour + time.Second)
	assert.ErrorIs(t, f.svc.ConfirmEmailVerification(ctx, id, "111111"), ErrExpiredOTP)

	stored, err := f.repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	assert.Equal(t, "111111", stored.VerifyOTP)
}

func TestEmailVerification_ReissueOverwrites(t *testing.T) {
	f := newFixture(t)
	id := f.register(t).Account.ID
	ctx := context.Background()

	_, err := f.svc.RequestEmailVerification(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.RequestEmailVerification(ctx, id)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ConfirmEmailVerification(ctx, id, "111111"), ErrInvalidOTP)
	assert.NoError(t, f.svc.ConfirmEmailVerification(ctx, id, "222222"))
}

func TestEmailVerification_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestEmailVerification(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = f.svc.IsVerified(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	_, err := f.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	f.svc.Wait()

	jobs := f.notifier.sent()
	require.Len(t, jobs, 2)
	assert.Equal(t, tpl.ResetOTP, jobs[1].Template)

	err = f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "000000", "new-pass")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "111111", "new-pass"))

	_, err = f.svc.Login(ctx, "alice@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice@example.com", "new-pass")
	assert.NoError(t, err)

	// the code is single use
	err = f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "111111", "again")
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestPasswordReset_Expiry(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	_, err := f.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "111111", "still-in-window"))

	_, err = f.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	f.now = f.now.Add(2 * time.Hour)
	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "222222", "late"), ErrExpiredOTP)
}

func TestPasswordReset_NotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	f.svc.Wait()

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "111111", "new-pass"))
	_, err = f.svc.Login(ctx, "alice@example.com", "new-pass")
	assert.NoError(t, err)
}

func TestPasswordReset_PasswordTooLong(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	_, err := f.svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	err = f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "111111", strings.Repeat("x", 80))
	require.ErrorIs(t, err, ErrValidation)

	// the code survives and the old password still works
	_, err = f.svc.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NoError(t, f.svc.ConfirmPasswordReset(ctx, "alice@example.com", "111111", "new-pass"))
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestPasswordReset(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	err = f.svc.ConfirmPasswordReset(ctx, "ghost@example.com", "111111", "x")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	err = f.svc.ConfirmPasswordReset(ctx, "ghost@example.com", "", "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAccountViews(t *testing.T) {
	f := newFixture(t)
	id := f.register(t).Account.ID
	ctx := context.Background()

	sum, err := f.svc.GetCurrentAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", sum.Name)

	data, err := f.svc.GetUserData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", data.Email)
	assert.False(t, data.IsAccountVerified)

	_, err = f.svc.GetUserData(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
