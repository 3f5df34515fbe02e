// Package auth registers and authenticates users and turns bearer tokens back
// into user identities.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ytakahashi/todo-app/internal/apperr"
	"github.com/ytakahashi/todo-app/internal/logging"
	"github.com/ytakahashi/todo-app/internal/models"
	"github.com/ytakahashi/todo-app/internal/storage"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgUserExists         = "User already exists"
	MsgNoToken            = "No token, authorization denied"
	MsgTokenInvalid       = "Token is not valid"
	MsgLinkCodeInvalid    = "Link code is not valid"

	maxNameLen      = 100
	maxEmailLen     = 254
	minPasswordLen  = 6
	maxPasswordSize = 72 // bcrypt ignores anything past 72 bytes

	LinkCodeTTL = 10 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Session is what register and login hand back to the client.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	users  storage.UserRepository
	tokens *TokenIssuer
	hasher Hasher
	logger logging.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users storage.UserRepository, tokens *TokenIssuer, hasher Hasher, logger logging.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive exact matches.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	var problems []string
	switch {
	case name == "":
		problems = append(problems, "Name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		problems = append(problems, "Name must be at most 100 characters")
	}
	if !validEmail(email) {
		problems = append(problems, "Please include a valid email")
	}
	switch {
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		problems = append(problems, "Please enter a password with 6 or more characters")
	case len(in.Password) > maxPasswordSize:
		problems = append(problems, "Password must be at most 72 bytes")
	}
	if len(problems) > 0 {
		return nil, apperr.Validation(problems...)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict(MsgUserExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, s.internal(ctx, "lookup user by email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "hash password", err)
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Password:  hash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict(MsgUserExists)
		}
		return nil, s.internal(ctx, "create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.session(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	var problems []string
	if !validEmail(email) {
		problems = append(problems, "Please include a valid email")
	}
	if password == "" {
		problems = append(problems, "Password is required")
	}
	if len(problems) > 0 {
		return nil, apperr.Validation(problems...)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_, _ = s.hasher.Verify(password, s.fallbackHash())
			return nil, apperr.Unauthorized(MsgInvalidCredentials)
		}
		return nil, s.internal(ctx, "lookup user by email", err)
	}

	ok, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, s.internal(ctx, "verify password", err)
	}
	if !ok {
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	return s.session(ctx, user)
}

// VerifyToken resolves a bearer token to the stored user it was issued for.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.Unauthorized(MsgNoToken)
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "error", err)
		return nil, apperr.Unauthorized(MsgTokenInvalid)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized(MsgTokenInvalid)
		}
		return nil, s.internal(ctx, "lookup user by id", err)
	}

	return user, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicUser{}, apperr.Unauthorized(MsgTokenInvalid)
		}
		return models.PublicUser{}, s.internal(ctx, "lookup user by id", err)
	}
	return user.Public(), nil
}

// IssueLinkCode returns a short-lived code a LINE user can send to the bot to
// act as userID.
func (s *Service) IssueLinkCode(ctx context.Context, userID string) (string, time.Time, error) {
	code, expiresAt, err := s.tokens.IssueLinkCode(userID, LinkCodeTTL)
	if err != nil {
		return "", time.Time{}, s.internal(ctx, "sign link code", err)
	}
	return code, expiresAt, nil
}

// ResolveLinkCode returns the user a link code was issued for.
func (s *Service) ResolveLinkCode(ctx context.Context, code string) (string, error) {
	userID, err := s.tokens.VerifyLinkCode(strings.TrimSpace(code))
	if err != nil {
		return "", apperr.Unauthorized(MsgLinkCodeInvalid)
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.Unauthorized(MsgLinkCodeInvalid)
		}
		return "", s.internal(ctx, "lookup user by id", err)
	}
	return userID, nil
}

func (s *Service) session(ctx context.Context, user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.internal(ctx, "sign token", err)
	}
	return &Session{Token: token, User: user.Public()}, nil
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "auth: "+op+" failed", "error", err)
	return apperr.Internal(err)
}

func validEmail(email string) bool {
	return email != "" && len(email) <= maxEmailLen && emailPattern.MatchString(email)
}
