package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
)

type fakeRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e fakeRepoError) Error() string       { return "repository error" }
func (e fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e fakeRepoError) IsConflict() bool    { return e.conflict }
func (e fakeRepoError) IsUnavailable() bool { return e.unavailable }

type stubTokenIssuer struct {
	err error
}

func (s stubTokenIssuer) Issue(userID, email, role string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token:" + userID + ":" + role, nil
}

type captureMailer struct {
	welcomes []string
	resets   []string
	tokens   []string
	err      error
}

func (m *captureMailer) SendWelcome(_ context.Context, email, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.welcomes = append(m.welcomes, email)
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, _ string, token string) error {
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, email)
	m.tokens = append(m.tokens, token)
	return nil
}

func newTestAccountService(t *testing.T, deps AccountServiceDeps) AccountService {
	t.Helper()
	if deps.Users == nil {
		deps.Users = &stubUserRepo{}
	}
	if deps.Tokens == nil {
		deps.Tokens = stubTokenIssuer{}
	}
	if deps.ResetTokenTTL == 0 {
		deps.ResetTokenTTL = 10 * time.Minute
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "000TEST" }
	}
	svc, err := NewAccountService(deps)
	if err != nil {
		t.Fatalf("new account service: %v", err)
	}
	return svc
}

func TestAccountServiceRegister(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	var inserted domain.UserAccount
	mailer := &captureMailer{}
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			insertFn: func(_ context.Context, account domain.UserAccount) error {
				inserted = account
				return nil
			},
		},
		Mailer: mailer,
		Clock:  func() time.Time { return now },
	})

	session, err := svc.Register(ctx, RegisterCommand{
		Username: " Aigerim ",
		Email:    "Aigerim@Example.com",
		Password: "espresso-crema",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.Account.ID != "usr_000TEST" {
		t.Fatalf("unexpected account id %s", session.Account.ID)
	}
	if session.Account.Role != domain.RoleUser {
		t.Fatalf("expected default role user got %s", session.Account.Role)
	}
	if inserted.Email != "aigerim@example.com" {
		t.Fatalf("expected lowercased email got %q", inserted.Email)
	}
	if inserted.PasswordHash == "" || inserted.PasswordHash == "espresso-crema" {
		t.Fatalf("expected hashed password")
	}
	if session.Token != "token:usr_000TEST:user" {
		t.Fatalf("unexpected token %s", session.Token)
	}
	if len(mailer.welcomes) != 1 || mailer.welcomes[0] != "aigerim@example.com" {
		t.Fatalf("expected welcome mail, got %v", mailer.welcomes)
	}
}

func TestAccountServiceRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestAccountService(t, AccountServiceDeps{})

	cases := []struct {
		name string
		cmd  RegisterCommand
	}{
		{"short username", RegisterCommand{Username: "ab", Email: "a@example.com", Password: "longenough"}},
		{"bad email", RegisterCommand{Username: "barista", Email: "not-an-email", Password: "longenough"}},
		{"short password", RegisterCommand{Username: "barista", Email: "a@example.com", Password: "short"}},
		{"staff self-assignment", RegisterCommand{Username: "barista", Email: "a@example.com", Password: "longenough", Role: "admin"}},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.cmd); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation got %v", tc.name, err)
		}
	}

	session, err := svc.Register(ctx, RegisterCommand{Username: "barista", Email: "b@example.com", Password: "longenough", Role: "premium"})
	if err != nil {
		t.Fatalf("premium registration: %v", err)
	}
	if session.Account.Role != domain.RolePremium {
		t.Fatalf("expected premium role got %s", session.Account.Role)
	}
}

func TestAccountServiceRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			insertFn: func(context.Context, domain.UserAccount) error {
				return fakeRepoError{conflict: true}
			},
		},
	})

	_, err := svc.Register(ctx, RegisterCommand{Username: "barista", Email: "dup@example.com", Password: "longenough"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict got %v", err)
	}
}

func TestAccountServiceLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("espresso-crema")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := domain.UserAccount{ID: "usr_1", Username: "aigerim", Email: "aigerim@example.com", PasswordHash: hash, Role: domain.RolePremium}
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			findEmailFn: func(_ context.Context, email string) (domain.UserAccount, error) {
				if email != "aigerim@example.com" {
					return domain.UserAccount{}, fakeRepoError{notFound: true}
				}
				return account, nil
			},
		},
	})

	session, err := svc.Login(ctx, " Aigerim@Example.com ", "espresso-crema")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token != "token:usr_1:premium" {
		t.Fatalf("unexpected token %s", session.Token)
	}

	if _, err := svc.Login(ctx, "aigerim@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "espresso-crema"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email got %v", err)
	}
	if _, err := svc.Login(ctx, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}
}

func TestAccountServiceForgotPassword(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC)
	account := domain.UserAccount{ID: "usr_1", Username: "aigerim", Email: "aigerim@example.com"}
	var saved domain.UserAccount
	mailer := &captureMailer{}
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			findEmailFn: func(_ context.Context, email string) (domain.UserAccount, error) {
				if email != account.Email {
					return domain.UserAccount{}, fakeRepoError{notFound: true}
				}
				return account, nil
			},
			updateFn: func(_ context.Context, updated domain.UserAccount) error {
				saved = updated
				return nil
			},
		},
		Mailer:        mailer,
		ResetTokenTTL: 15 * time.Minute,
		Clock:         func() time.Time { return now },
	})

	if err := svc.ForgotPassword(ctx, "aigerim@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if len(mailer.tokens) != 1 {
		t.Fatalf("expected reset mail with token")
	}
	if saved.PasswordResetToken != auth.HashResetToken(mailer.tokens[0]) {
		t.Fatalf("stored token must be the digest of the mailed token")
	}
	if saved.PasswordResetExpires == nil || !saved.PasswordResetExpires.Equal(now.Add(15*time.Minute)) {
		t.Fatalf("unexpected expiry %v", saved.PasswordResetExpires)
	}

	// Unknown addresses must not be distinguishable from known ones.
	if err := svc.ForgotPassword(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("forgot password for unknown email: %v", err)
	}
	if len(mailer.resets) != 1 {
		t.Fatalf("no mail expected for unknown email")
	}
}

func TestAccountServiceForgotPasswordMailFailureClearsToken(t *testing.T) {
	ctx := context.Background()
	account := domain.UserAccount{ID: "usr_1", Username: "aigerim", Email: "aigerim@example.com"}
	var updates []domain.UserAccount
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			findEmailFn: func(context.Context, string) (domain.UserAccount, error) {
				return account, nil
			},
			updateFn: func(_ context.Context, updated domain.UserAccount) error {
				updates = append(updates, updated)
				return nil
			},
		},
		Mailer: &captureMailer{err: errors.New("smtp down")},
	})

	if err := svc.ForgotPassword(ctx, "aigerim@example.com"); err == nil {
		t.Fatalf("expected error when mail delivery fails")
	}
	if len(updates) != 2 {
		t.Fatalf("expected token store and clear updates, got %d", len(updates))
	}
	if updates[1].PasswordResetToken != "" || updates[1].PasswordResetExpires != nil {
		t.Fatalf("expected reset fields to be cleared")
	}
}

func TestAccountServiceResetPassword(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	expires := now.Add(5 * time.Minute)
	digest := auth.HashResetToken("plain-token")
	account := domain.UserAccount{
		ID:                   "usr_1",
		Username:             "aigerim",
		Email:                "aigerim@example.com",
		PasswordHash:         "old-hash",
		Role:                 domain.RoleUser,
		PasswordResetToken:   digest,
		PasswordResetExpires: &expires,
	}
	var saved domain.UserAccount
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			findByResetF: func(_ context.Context, lookup string) (domain.UserAccount, error) {
				if lookup != digest {
					return domain.UserAccount{}, fakeRepoError{notFound: true}
				}
				return account, nil
			},
			updateFn: func(_ context.Context, updated domain.UserAccount) error {
				saved = updated
				return nil
			},
		},
		Clock: func() time.Time { return now },
	})

	session, err := svc.ResetPassword(ctx, "plain-token", "new-password-1")
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected session token after reset")
	}
	if saved.PasswordResetToken != "" || saved.PasswordResetExpires != nil {
		t.Fatalf("expected reset fields cleared")
	}
	if saved.PasswordHash == "old-hash" || saved.PasswordHash == "new-password-1" {
		t.Fatalf("expected new password hash")
	}

	if _, err := svc.ResetPassword(ctx, "wrong-token", "new-password-1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown token got %v", err)
	}
}

func TestAccountServiceResetPasswordExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	digest := auth.HashResetToken("plain-token")
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			findByResetF: func(context.Context, string) (domain.UserAccount, error) {
				return domain.UserAccount{ID: "usr_1", PasswordResetToken: digest, PasswordResetExpires: &expired}, nil
			},
		},
		Clock: func() time.Time { return now },
	})

	if _, err := svc.ResetPassword(ctx, "plain-token", "new-password-1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for expired token got %v", err)
	}
}

func TestAccountServiceGetProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestAccountService(t, AccountServiceDeps{
		Users: &stubUserRepo{
			findFn: func(_ context.Context, userID string) (domain.UserAccount, error) {
				if userID != "usr_1" {
					return domain.UserAccount{}, fakeRepoError{notFound: true}
				}
				return domain.UserAccount{ID: "usr_1", Username: "aigerim"}, nil
			},
		},
	})

	account, err := svc.GetProfile(ctx, "usr_1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if account.Username != "aigerim" {
		t.Fatalf("unexpected account %+v", account)
	}
	if _, err := svc.GetProfile(ctx, "usr_ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
