package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/perf"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"golang.org/x/text/unicode/norm"
)

// MaxUsernameLength is counted in characters, not bytes.
const MaxUsernameLength = 64

type LoginStatus string

const (
	LoginIdle        LoginStatus = "idle"
	LoginInProgress  LoginStatus = "in_progress"
	LoginSuccess     LoginStatus = "success"
	LoginFailed      LoginStatus = "failed"
	LoginInvalidData LoginStatus = "invalid_data"
)

type LoginForm struct {
	Username    string
	RedirectURL *string
}

type LoginResult struct {
	Status      LoginStatus
	RedirectURL *string
	Token       string
	Session     *auth.SessionView
}

// UserResolver maps a username to an account, creating it if needed.
type UserResolver interface {
	EnsureUserByUsername(ctx context.Context, userName string) (*models.User, error)
}

// Warmer starts background warm-up without blocking.
type Warmer interface {
	Trigger()
}

// AuthService signs users in by username alone.
type AuthService struct {
	users  UserResolver
	issuer *auth.Issuer
	warmup Warmer
	log    logging.Logger
	clock  func() time.Time
}

func NewAuthService(users UserResolver, issuer *auth.Issuer, warmup Warmer, log logging.Logger) *AuthService {
	return &AuthService{
		users:  users,
		issuer: issuer,
		warmup: warmup,
		log:    log.With("module", "auth"),
		clock:  time.Now,
	}
}

// ValidateUsername normalizes the name to NFC and checks its length.
func ValidateUsername(userName string) (string, error) {
	n := norm.NFC.String(userName)
	l := utf8.RuneCountInString(n)
	if l < 1 || l > MaxUsernameLength || !utf8.ValidString(n) {
		return "", fmt.Errorf("%w: username must be 1-%d characters", common.ErrorValidation, MaxUsernameLength)
	}
	return n, nil
}

// Login validates the form, resolves the account and issues a session token.
// Resolution and signing failures are logged and reported only as failed.
func (s *AuthService) Login(ctx context.Context, form LoginForm) LoginResult {
	userName, err := ValidateUsername(form.Username)
	if err != nil {
		return LoginResult{Status: LoginInvalidData}
	}

	claim, err := s.Authorize(ctx, userName)
	if err != nil {
		s.log.Error(ctx, "sign-in failed", "error", err)
		return LoginResult{Status: LoginFailed}
	}

	token, err := s.issuer.Issue(*claim)
	if err != nil {
		s.log.Error(ctx, "token signing failed", "error", err)
		return LoginResult{Status: LoginFailed}
	}

	session, err := s.issuer.Session(token)
	if err != nil {
		s.log.Error(ctx, "issued token did not verify", "error", err)
		return LoginResult{Status: LoginFailed}
	}

	return LoginResult{
		Status:      LoginSuccess,
		RedirectURL: form.RedirectURL,
		Token:       token,
		Session:     session,
	}
}

// Authorize resolves userName to an identity. The claim carries the id and
// username of the resolved record. Timings of the lookup are logged with the
// "Credentials" prefix.
func (s *AuthService) Authorize(ctx context.Context, userName string) (*auth.Claim, error) {
	timer := perf.NewTimerWithClock(s.clock)
	timer.Mark("validate")

	s.warmup.Trigger()

	if userName == "" {
		return nil, fmt.Errorf("%w: empty username", common.ErrorUnauthorized)
	}

	timer.Mark("beforeUserLookup")
	u, err := s.users.EnsureUserByUsername(ctx, userName)
	timer.Mark("afterUserLookup")
	timer.Log(ctx, s.log, "Credentials")
	if err != nil {
		return nil, err
	}

	return &auth.Claim{ID: u.ID, Username: u.UserName, Type: auth.UserTypeRegular}, nil
}
