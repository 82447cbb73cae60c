package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/internal/platform/store"
	"github.com/hms/hms/pkg/validate"
)

// Service owns the users list and the per-user session records. It also
// serves as the auth.Authenticator for the session middleware.
type Service struct {
	store    store.Store
	tokens   *auth.Tokens
	now      func() time.Time
	hashCost int
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost sets the bcrypt cost for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(st store.Store, tokens *auth.Tokens, opts ...Option) *Service {
	s := &Service{
		store:    st,
		tokens:   tokens,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ auth.Authenticator = (*Service)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureDefaults writes the built-in admin, patient and doctor accounts when
// no users exist yet. It reports whether it wrote anything.
func (s *Service) EnsureDefaults(ctx context.Context) (bool, error) {
	seeded := make([]User, len(defaultUsers))
	for i, d := range defaultUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), s.hashCost)
		if err != nil {
			return false, fmt.Errorf("hash default password: %w", err)
		}
		seeded[i] = d.User
		seeded[i].PasswordHash = string(hash)
	}

	wrote := false
	err := store.UpdateJSON(ctx, s.store, store.UsersKey, func(cur []User) ([]User, error) {
		if len(cur) > 0 {
			wrote = false
			return cur, nil
		}
		wrote = true
		return seeded, nil
	})
	if err != nil {
		return false, fmt.Errorf("seed users: %w", err)
	}
	if wrote {
		s.logger.Info().Int("count", len(seeded)).Msg("default users created")
	}
	return wrote, nil
}

// Users returns every account.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	var users []User
	if _, err := store.GetJSON(ctx, s.store, store.UsersKey, &users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (s *Service) findUser(ctx context.Context, email string) (*User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if normalizeEmail(users[i].Email) == email {
			return &users[i], nil
		}
	}
	return nil, apperr.Newf(apperr.ErrNotFound, "user %s", email)
}

// Login checks the credentials, issues a token and records it as the user's
// current session. Any earlier session of that user stops being valid.
func (s *Service) Login(ctx context.Context, req LoginRequest) (res *LoginResult, err error) {
	defer func() { s.metrics.ObserveLogin(err) }()

	if err := validate.Struct(req); err != nil {
		return nil, apperr.Newf(apperr.ErrValidation, "%v", err)
	}
	email := normalizeEmail(req.Email)
	u, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Newf(apperr.ErrUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Newf(apperr.ErrUnauthorized, "invalid email or password")
	}

	now := s.now()
	token, claims, err := s.tokens.Issue(auth.Principal{UserID: email, Name: u.Name, Role: u.Role}, now)
	if err != nil {
		return nil, err
	}
	sess := Session{Email: email, TokenID: claims.ID, IssuedAt: now, ExpiresAt: claims.ExpiresAt.Time}
	if err := store.SetJSON(ctx, s.store, store.SessionKey(email), sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info().Str("email", email).Str("role", u.Role).Msg("user logged in")
	return &LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, User: u.Profile()}, nil
}

// Authenticate accepts token only while it is the user's current session.
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	now := s.now()
	claims, err := s.tokens.Parse(token, now)
	if err != nil {
		return nil, apperr.Newf(apperr.ErrUnauthorized, "%v", err)
	}
	var sess Session
	found, err := store.GetJSON(ctx, s.store, store.SessionKey(claims.Subject), &sess)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found || sess.TokenID != claims.ID || !now.Before(sess.ExpiresAt) {
		return nil, apperr.Newf(apperr.ErrUnauthorized, "session ended")
	}
	return claims.Principal(), nil
}

// Logout clears the current session of email.
func (s *Service) Logout(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := store.SetJSON(ctx, s.store, store.SessionKey(email), Session{Email: email}); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("user logged out")
	return nil
}

// Signup creates a patient account. Emails are unique regardless of case.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Profile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, apperr.Newf(apperr.ErrValidation, "%v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	email := normalizeEmail(req.Email)

	var created User
	err = store.UpdateJSON(ctx, s.store, store.UsersKey, func(cur []User) ([]User, error) {
		maxID := 0
		for _, u := range cur {
			if normalizeEmail(u.Email) == email {
				return nil, apperr.Newf(apperr.ErrConflict, "an account with email %s already exists", email)
			}
			maxID = max(maxID, u.ID)
		}
		created = User{
			ID:               maxID + 1,
			Name:             strings.TrimSpace(req.Name),
			Email:            email,
			PasswordHash:     string(hash),
			Role:             auth.RolePatient,
			Phone:            req.Phone,
			RegistrationDate: s.now().Format(time.DateOnly),
		}
		return append(cur, created), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("user_id", created.ID).Str("email", email).Msg("patient signed up")
	p := created.Profile()
	return &p, nil
}

// Me returns the profile of email.
func (s *Service) Me(ctx context.Context, email string) (*Profile, error) {
	u, err := s.findUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}
