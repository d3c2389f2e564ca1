package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
	tpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

const (
	DefaultOTPTTL = time.Hour

	notifyTimeout = 15 * time.Second
)

// PasswordHasher is the one-way transform used for stored credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// Notifier is the out-of-band sink for codes and welcome mails. Delivery is
// best-effort: a failing Send is logged and never fails the calling operation.
type Notifier interface {
	Send(ctx context.Context, job mailer.EmailJob) error
}

// AuthService owns the account lifecycle: registration, login, email
// verification and password reset.
type AuthService struct {
	Repo     repo.AccountRepository
	Hasher   PasswordHasher
	JWT      *helpers.JWTManager
	Notifier Notifier
	Logger   *logrus.Logger
	OTPTTL   time.Duration

	now    func() time.Time
	genOTP func() (string, error)

	dummyOnce sync.Once
	dummyHash string

	inflight sync.WaitGroup
}

type Option func(*AuthService)

// WithClock sets the time source used for OTP expiry.
func WithClock(now func() time.Time) Option { return func(s *AuthService) { s.now = now } }

// WithOTPGenerator replaces the random 6-digit generator.
func WithOTPGenerator(gen func() (string, error)) Option {
	return func(s *AuthService) { s.genOTP = gen }
}

// WithOTPTTL overrides the one hour challenge window.
func WithOTPTTL(ttl time.Duration) Option {
	return func(s *AuthService) {
		if ttl > 0 {
			s.OTPTTL = ttl
		}
	}
}

func NewAuthService(accounts repo.AccountRepository, hasher PasswordHasher, jwt *helpers.JWTManager, notifier Notifier, logger *logrus.Logger, opts ...Option) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &AuthService{
		Repo:     accounts,
		Hasher:   hasher,
		JWT:      jwt,
		Notifier: notifier,
		Logger:   logger,
		OTPTTL:   DefaultOTPTTL,
		now:      time.Now,
		genOTP:   helpers.GenOTPCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account   entity.AccountSummary
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified account and issues a session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, oops.With("operation", "register: lookup email").Wrap(err)
	}

	hash, err := s.hashPassword(in.Password, "register: hash password")
	if err != nil {
		return nil, err
	}

	a := &entity.Account{Name: name, Email: email, PasswordHash: hash}
	if err := s.Repo.Create(ctx, a); err != nil {
		// lost a race against a concurrent registration
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, oops.With("operation", "register: create account").Wrap(err)
	}

	res, err := s.issue(a)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, a.ID, mailer.EmailJob{
		To:       a.Email,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(a.Name, a.Email, tpl.WithTime(s.now())),
	})
	s.Logger.WithField("user_id", a.ID).Info("account registered")
	return res, nil
}

// Login checks credentials and issues a fresh session token.
// An unknown email yields ErrAccountNotFound, a wrong password ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: both email and password are required", ErrValidation)
	}

	a, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		// keep response time close to the wrong-password path
		s.Hasher.Compare(s.fakeHash(), password)
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "login: lookup email").Wrap(err)
	}

	if !s.Hasher.Compare(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(a)
}

// RequestEmailVerification stores a fresh verification code for the account
// and mails it. Any previous outstanding code is replaced.
func (s *AuthService) RequestEmailVerification(ctx context.Context, accountID string) (time.Time, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return time.Time{}, err
	}
	if a.IsVerified {
		return time.Time{}, ErrAlreadyVerified
	}

	code, exp, err := s.newChallenge()
	if err != nil {
		return time.Time{}, err
	}
	a.VerifyOTP = code
	a.VerifyOTPExpiresAt = exp
	if err := s.save(ctx, a, "verify: store code"); err != nil {
		return time.Time{}, err
	}

	s.notify(ctx, a.ID, mailer.EmailJob{
		To:       a.Email,
		Template: tpl.VerifyOTP,
		Data:     tpl.NewVerifyOTPData(a.Name, a.Email, code, tpl.WithExpiresAt(exp)),
	})
	return exp, nil
}

// ConfirmEmailVerification consumes the outstanding verification code and
// marks the account verified.
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, accountID, otp string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return fmt.Errorf("%w: otp is required", ErrValidation)
	}
	a, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}
	if a.IsVerified {
		return ErrAlreadyVerified
	}
	if err := s.checkOTP(a.VerifyOTP, a.VerifyOTPExpiresAt, otp); err != nil {
		return err
	}

	a.ClearVerifyOTP()
	a.IsVerified = true
	if err := s.save(ctx, a, "verify: confirm"); err != nil {
		return err
	}
	s.Logger.WithField("user_id", a.ID).Info("email verified")
	return nil
}

// IsVerified reports the verification flag of the account.
func (s *AuthService) IsVerified(ctx context.Context, accountID string) (bool, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return false, err
	}
	return a.IsVerified, nil
}

// RequestPasswordReset stores a reset code for the account owning email and mails it.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return time.Time{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	a, err := s.accountByEmail(ctx, email)
	if err != nil {
		return time.Time{}, err
	}

	code, exp, err := s.newChallenge()
	if err != nil {
		return time.Time{}, err
	}
	a.ResetOTP = code
	a.ResetOTPExpiresAt = exp
	if err := s.save(ctx, a, "reset: store code"); err != nil {
		return time.Time{}, err
	}

	s.notify(ctx, a.ID, mailer.EmailJob{
		To:       a.Email,
		Template: tpl.ResetOTP,
		Data:     tpl.NewResetOTPData(a.Name, a.Email, code, tpl.WithExpiresAt(exp)),
	})
	return exp, nil
}

// ConfirmPasswordReset replaces the password when otp matches the outstanding
// reset code. No session is issued; the caller logs in again.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, otp, newPassword string) error {
	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" || newPassword == "" {
		return fmt.Errorf("%w: email, otp and new password are required", ErrValidation)
	}
	a, err := s.accountByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkOTP(a.ResetOTP, a.ResetOTPExpiresAt, otp); err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword, "reset: hash password")
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	a.ClearResetOTP()
	if err := s.save(ctx, a, "reset: confirm"); err != nil {
		return err
	}
	s.Logger.WithField("user_id", a.ID).Info("password reset")
	return nil
}

// GetCurrentAccount returns the sanitized view of the session's account.
func (s *AuthService) GetCurrentAccount(ctx context.Context, accountID string) (entity.AccountSummary, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return entity.AccountSummary{}, err
	}
	return a.Summary(), nil
}

// GetUserData returns name, email and verification state of the session's account.
func (s *AuthService) GetUserData(ctx context.Context, accountID string) (entity.UserData, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return entity.UserData{}, err
	}
	return a.UserData(), nil
}

// Wait blocks until every dispatched notification has finished.
func (s *AuthService) Wait() {
	s.inflight.Wait()
}

func (s *AuthService) issue(a *entity.Account) (*AuthResult, error) {
	token, exp, err := s.JWT.Generate(a.ID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", a.ID).Error("generate token failed")
		return nil, oops.With("operation", "issue token").Wrap(err)
	}
	return &AuthResult{Account: a.Summary(), Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) account(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get account").With("user_id", id).Wrap(err)
	}
	return a, nil
}

func (s *AuthService) accountByEmail(ctx context.Context, email string) (*entity.Account, error) {
	a, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get account by email").Wrap(err)
	}
	return a, nil
}

func (s *AuthService) hashPassword(plain, op string) (string, error) {
	hash, err := s.Hasher.Hash(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, helpers.MaxPasswordBytes)
	}
	if err != nil {
		return "", oops.With("operation", op).Wrap(err)
	}
	return hash, nil
}

func (s *AuthService) save(ctx context.Context, a *entity.Account, op string) error {
	err := s.Repo.Update(ctx, a)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return oops.With("operation", op).With("user_id", a.ID).Wrap(err)
	}
	return nil
}

func (s *AuthService) newChallenge() (string, time.Time, error) {
	code, err := s.genOTP()
	if err != nil {
		return "", time.Time{}, oops.With("operation", "generate otp").Wrap(err)
	}
	return code, s.now().Add(s.OTPTTL), nil
}

// checkOTP validates supplied against a stored challenge. Expired codes are
// rejected but left in place until overwritten.
func (s *AuthService) checkOTP(stored string, expiresAt time.Time, supplied string) error {
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return ErrInvalidOTP
	}
	if expiresAt.Before(s.now()) {
		return ErrExpiredOTP
	}
	return nil
}

// notify hands job to the Notifier off the request path. The context is
// detached so an aborted request does not cancel a send that already started.
func (s *AuthService) notify(ctx context.Context, accountID string, job mailer.EmailJob) {
	if s.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		c, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.Notifier.Send(c, job); err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id":  accountID,
				"template": job.Template,
			}).Warn("notification delivery failed")
		}
	}()
}

func (s *AuthService) fakeHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}
