// Package verify implements the one-time-code verification state machine
// that gates signup, login, and password reset.
package verify

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"clarify/api/internal/auth"
	"clarify/api/internal/ratelimit"
	"clarify/api/internal/session"
	"clarify/api/internal/store"
	"clarify/api/internal/util"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence surface the state machine needs.
type Store interface {
	CreateUser(ctx context.Context, user store.User) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	InsertCode(ctx context.Context, code store.OneTimeCode) error
	LatestCode(ctx context.Context, userID, purpose string) (store.OneTimeCode, error)
	FindUnexpiredCode(ctx context.Context, value, purpose string) (store.OneTimeCode, error)
}

// Sessions is the session storage surface.
type Sessions interface {
	Save(ctx context.Context, tokenHash string, data session.Data) error
	Get(ctx context.Context, tokenHash string) (session.Data, error)
	Delete(ctx context.Context, tokenHash string) error
}

// Mailer delivers verification codes.
type Mailer interface {
	IsConfigured() bool
	SendCodeEmail(to, userName, code, purpose string) error
}

// Service drives the verification state machine.
type Service struct {
	store    Store
	sessions Sessions
	mailer   Mailer
	limiter  *ratelimit.PerKey
	codeTTL  time.Duration
	now      func() time.Time
}

// NewService creates a verification service. limiter may be nil to disable
// per-address issuance limiting.
func NewService(st Store, sessions Sessions, mailer Mailer, limiter *ratelimit.PerKey, codeTTL time.Duration) *Service {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		store:    st,
		sessions: sessions,
		mailer:   mailer,
		limiter:  limiter,
		codeTTL:  codeTTL,
		now:      time.Now,
	}
}

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// dummyHash keeps the unknown-email path on the same bcrypt-compare timing
// as the wrong-password path.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// SignupRequest contains signup parameters.
type SignupRequest struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// RequestSignup creates the account, issues a signup code, and opens a
// session in the pending_signup state. The returned token identifies the
// session to the confirm step.
func (s *Service) RequestSignup(ctx context.Context, req SignupRequest) (string, error) {
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return "", fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if !emailShape.MatchString(req.Email) {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(req.Password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return "", fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return "", fmt.Errorf("%w: email already registered", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	if err := s.issueCode(ctx, user, store.PurposeSignup); err != nil {
		return "", err
	}

	return s.openSession(ctx, session.StatePendingSignup, user.ID)
}

// ConfirmSignup checks the submitted code against the latest signup code for
// the pending user. On success the session drops back to anonymous: signup
// confirmation registers the account but does not authenticate it.
func (s *Service) ConfirmSignup(ctx context.Context, tokenHash, code string) error {
	sess, err := s.sessions.Get(ctx, tokenHash)
	if err != nil {
		return err
	}
	if sess.State != session.StatePendingSignup {
		return fmt.Errorf("%w: no signup pending", ErrValidation)
	}

	if err := s.checkLatestCode(ctx, sess.UserID, store.PurposeSignup, code); err != nil {
		return err
	}

	sess.State = session.StateAnonymous
	sess.UserID = ""
	return s.sessions.Save(ctx, tokenHash, sess)
}

// LoginRequest contains login parameters.
type LoginRequest struct {
	Email    string
	Password string
}

// RequestLogin checks the password, issues a login code, and opens a session
// in the pending_login state.
func (s *Service) RequestLogin(ctx context.Context, req LoginRequest) (string, error) {
	if req.Email == "" || req.Password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	if err := s.issueCode(ctx, user, store.PurposeLogin); err != nil {
		return "", err
	}

	return s.openSession(ctx, session.StatePendingLogin, user.ID)
}

// ConfirmLogin checks the submitted code against the latest login code and
// flips the session to authenticated.
func (s *Service) ConfirmLogin(ctx context.Context, tokenHash, code string) error {
	sess, err := s.sessions.Get(ctx, tokenHash)
	if err != nil {
		return err
	}
	if sess.State != session.StatePendingLogin {
		return fmt.Errorf("%w: no login pending", ErrValidation)
	}

	if err := s.checkLatestCode(ctx, sess.UserID, store.PurposeLogin, code); err != nil {
		return err
	}

	sess.State = session.StateAuthenticated
	return s.sessions.Save(ctx, tokenHash, sess)
}

// ResetRequest contains password reset request parameters. The new password
// is validated up front; the confirm step supplies it again together with
// the code.
type ResetRequest struct {
	Email           string
	NewPassword     string
	ConfirmPassword string
}

// RequestPasswordReset issues a password_reset code for the account. Unknown
// email addresses are reported as not found.
func (s *Service) RequestPasswordReset(ctx context.Context, req ResetRequest) error {
	if !emailShape.MatchString(req.Email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(req.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	return s.issueCode(ctx, user, store.PurposePasswordReset)
}

// ConfirmResetRequest contains password reset confirmation parameters.
type ConfirmResetRequest struct {
	Code        string
	NewPassword string
}

// ConfirmPasswordReset identifies the account by the unexpired code value and
// replaces its password. Reset codes are the only purpose with enforced
// expiry.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req ConfirmResetRequest) error {
	if req.Code == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if len(req.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	code, err := s.store.FindUnexpiredCode(ctx, req.Code, store.PurposePasswordReset)
	if err != nil {
		return ErrInvalidCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, code.UserID, string(hash)); err != nil {
		return err
	}
	return nil
}

// Logout removes the session unconditionally.
func (s *Service) Logout(ctx context.Context, tokenHash string) error {
	return s.sessions.Delete(ctx, tokenHash)
}

// issueCode writes a fresh code row and dispatches it by email. Every row
// gets an expiry timestamp; enforcement is purpose-dependent at lookup time.
func (s *Service) issueCode(ctx context.Context, user store.User, purpose string) error {
	if s.limiter != nil && !s.limiter.Allow(user.Email) {
		return ErrRateLimited
	}

	value, err := auth.NewCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	code := store.OneTimeCode{
		ID:        util.NewID("otc"),
		UserID:    user.ID,
		Code:      value,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL),
	}
	if err := s.store.InsertCode(ctx, code); err != nil {
		return fmt.Errorf("insert code: %w", err)
	}

	if !s.mailer.IsConfigured() {
		log.Printf("verify: email not configured, %s code for %s: %s", purpose, user.Email, value)
		return nil
	}
	if err := s.mailer.SendCodeEmail(user.Email, user.FirstName, value, purpose); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

// checkLatestCode compares the submitted value against the most recently
// issued code for the purpose. Superseded codes are rejected even if their
// value is correct. Expiry is deliberately not checked here.
func (s *Service) checkLatestCode(ctx context.Context, userID, purpose, submitted string) error {
	if submitted == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	latest, err := s.store.LatestCode(ctx, userID, purpose)
	if err != nil {
		return ErrInvalidCode
	}
	if latest.Code != submitted {
		return ErrInvalidCode
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, state, userID string) (string, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	data := session.Data{State: state, UserID: userID}
	if err := s.sessions.Save(ctx, auth.HashToken(token), data); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}
