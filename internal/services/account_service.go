package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/repositories"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 30
	passwordMinLen = 8
)

// AccountServiceDeps wires the account service dependencies. Mailer and
// Logger are optional.
type AccountServiceDeps struct {
	Users         repositories.UserRepository
	Tokens        TokenIssuer
	Mailer        AccountMailer
	ResetTokenTTL time.Duration
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type accountService struct {
	users    repositories.UserRepository
	tokens   TokenIssuer
	mailer   AccountMailer
	resetTTL time.Duration
	clock    func() time.Time
	newID    func() string
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewAccountService constructs the registration and authentication service.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.Users == nil {
		return nil, errors.New("account service requires a user repository")
	}
	if deps.Tokens == nil {
		return nil, errors.New("account service requires a token issuer")
	}
	if deps.ResetTokenTTL <= 0 {
		return nil, errors.New("account service requires a positive reset token ttl")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &accountService{
		users:    deps.Users,
		tokens:   deps.Tokens,
		mailer:   deps.Mailer,
		resetTTL: deps.ResetTokenTTL,
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
	}, nil
}

func (s *accountService) Register(ctx context.Context, cmd RegisterCommand) (Session, error) {
	username := sanitizeText(cmd.Username)
	nameLen := utf8.RuneCountInString(username)
	if nameLen < usernameMinLen || nameLen > usernameMaxLen {
		return Session{}, fmt.Errorf("%w: username must be between %d and %d characters", ErrValidation, usernameMinLen, usernameMaxLen)
	}
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return Session{}, err
	}
	if err := validatePassword(cmd.Password); err != nil {
		return Session{}, err
	}
	role, err := selfAssignableRole(cmd.Role)
	if err != nil {
		return Session{}, err
	}
	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	account := domain.UserAccount{
		ID:           "usr_" + s.newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, account); err != nil {
		mapped := mapRepositoryError(err, "account")
		if errors.Is(mapped, ErrConflict) {
			return Session{}, fmt.Errorf("%w: email is already registered", ErrConflict)
		}
		return Session{}, mapped
	}
	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, account.Email, account.Username); err != nil {
			s.logger(ctx, "welcome_email_failed", map[string]any{
				"user_id": account.ID,
				"error":   err.Error(),
			})
		}
	}
	return s.openSession(account)
}

func (s *accountService) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	account, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(mapRepositoryError(err, "account"), ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, mapRepositoryError(err, "account")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.openSession(account)
}

// ForgotPassword starts the reset flow. Unknown addresses are ignored so
// the endpoint does not leak which emails have accounts.
func (s *accountService) ForgotPassword(ctx context.Context, email string) error {
	normalised, err := normaliseEmail(email)
	if err != nil {
		return err
	}
	account, err := s.users.FindByEmail(ctx, normalised)
	if err != nil {
		mapped := mapRepositoryError(err, "account")
		if errors.Is(mapped, ErrNotFound) {
			s.logger(ctx, "password_reset_unknown_email", map[string]any{"email": normalised})
			return nil
		}
		return mapped
	}

	plain, digest, err := auth.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := s.clock()
	expires := now.Add(s.resetTTL)
	account.PasswordResetToken = digest
	account.PasswordResetExpires = &expires
	account.UpdatedAt = now
	if err := s.users.Update(ctx, account); err != nil {
		return mapRepositoryError(err, "account")
	}

	if s.mailer == nil {
		s.logger(ctx, "password_reset_mailer_unconfigured", map[string]any{"user_id": account.ID})
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, account.Email, account.Username, plain); err != nil {
		account.PasswordResetToken = ""
		account.PasswordResetExpires = nil
		account.UpdatedAt = s.clock()
		if clearErr := s.users.Update(ctx, account); clearErr != nil {
			s.logger(ctx, "password_reset_token_clear_failed", map[string]any{
				"user_id": account.ID,
				"error":   clearErr.Error(),
			})
		}
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, token, newPassword string) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("%w: reset token is required", ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return Session{}, err
	}
	account, err := s.users.FindByResetToken(ctx, auth.HashResetToken(token))
	if err != nil {
		mapped := mapRepositoryError(err, "account")
		if errors.Is(mapped, ErrNotFound) {
			return Session{}, fmt.Errorf("%w: reset token is invalid or has expired", ErrValidation)
		}
		return Session{}, mapped
	}
	now := s.clock()
	if account.PasswordResetExpires == nil || account.PasswordResetExpires.Before(now) {
		return Session{}, fmt.Errorf("%w: reset token is invalid or has expired", ErrValidation)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash
	account.PasswordResetToken = ""
	account.PasswordResetExpires = nil
	account.UpdatedAt = now
	if err := s.users.Update(ctx, account); err != nil {
		return Session{}, mapRepositoryError(err, "account")
	}
	return s.openSession(account)
}

func (s *accountService) GetProfile(ctx context.Context, userID string) (domain.UserAccount, error) {
	if userID == "" {
		return domain.UserAccount{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.UserAccount{}, mapRepositoryError(err, "account")
	}
	return account, nil
}

func (s *accountService) openSession(account domain.UserAccount) (Session, error) {
	token, err := s.tokens.Issue(account.ID, account.Email, string(account.Role))
	if err != nil {
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}
	return Session{Token: token, Account: account}, nil
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: email address is malformed", ErrValidation)
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < passwordMinLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, passwordMinLen)
	}
	return nil
}

// selfAssignableRole limits registration to customer roles. Staff and admin
// accounts are provisioned out of band.
func selfAssignableRole(role string) (domain.Role, error) {
	switch domain.Role(strings.ToLower(strings.TrimSpace(role))) {
	case "":
		return domain.RoleUser, nil
	case domain.RoleUser:
		return domain.RoleUser, nil
	case domain.RolePremium:
		return domain.RolePremium, nil
	default:
		return "", fmt.Errorf("%w: role %q cannot be self-assigned", ErrValidation, role)
	}
}
