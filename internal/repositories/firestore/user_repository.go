package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	pfirestore "github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/firestore"
)

const usersCollection = "users"

type userDocument struct {
	Username             string     `firestore:"username"`
	Email                string     `firestore:"email"`
	PasswordHash         string     `firestore:"passwordHash"`
	Role                 string     `firestore:"role"`
	PasswordResetToken   string     `firestore:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `firestore:"passwordResetExpires,omitempty"`
	CreatedAt            time.Time  `firestore:"createdAt"`
	UpdatedAt            time.Time  `firestore:"updatedAt"`
}

// UserRepository persists customer accounts in Firestore.
type UserRepository struct {
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{provider: provider}, nil
}

// Insert creates the account document, enforcing email uniqueness inside a transaction.
func (r *UserRepository) Insert(ctx context.Context, account domain.UserAccount) error {
	ref, err := r.docRef(ctx, account.ID)
	if err != nil {
		return err
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	doc := fromDomainAccount(account)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		query := client.Collection(usersCollection).Where("email", "==", doc.Email).Limit(1)
		existing, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return status.Errorf(codes.AlreadyExists, "email %s already registered", doc.Email)
		}
		return tx.Create(ref, doc)
	})
	return pfirestore.WrapError("users.insert", err)
}

// Update overwrites the account document. Fails when the document is missing.
func (r *UserRepository) Update(ctx context.Context, account domain.UserAccount) error {
	ref, err := r.docRef(ctx, account.ID)
	if err != nil {
		return err
	}
	doc := fromDomainAccount(account)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, doc)
	})
	return pfirestore.WrapError("users.update", err)
}

// FindByID loads the account by id.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserAccount, error) {
	ref, err := r.docRef(ctx, userID)
	if err != nil {
		return domain.UserAccount{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.UserAccount{}, pfirestore.WrapError("users.find", err)
	}

	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.UserAccount{}, pfirestore.WrapError("users.decode", err)
	}
	return toDomainAccount(snap.Ref.ID, doc), nil
}

// FindByEmail loads the account matching the normalised email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.UserAccount{}, errors.New("email is required")
	}
	return r.findOne(ctx, "email", email, "users.find_by_email")
}

// FindByResetToken loads the account holding the given reset token digest.
func (r *UserRepository) FindByResetToken(ctx context.Context, tokenDigest string) (domain.UserAccount, error) {
	tokenDigest = strings.TrimSpace(tokenDigest)
	if tokenDigest == "" {
		return domain.UserAccount{}, errors.New("reset token digest is required")
	}
	return r.findOne(ctx, "passwordResetToken", tokenDigest, "users.find_by_reset_token")
}

func (r *UserRepository) findOne(ctx context.Context, field, value, op string) (domain.UserAccount, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.UserAccount{}, err
	}

	iter := client.Collection(usersCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.UserAccount{}, pfirestore.WrapError(op, status.Error(codes.NotFound, "user not found"))
	}
	if err != nil {
		return domain.UserAccount{}, pfirestore.WrapError(op, err)
	}

	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.UserAccount{}, pfirestore.WrapError("users.decode", err)
	}
	return toDomainAccount(snap.Ref.ID, doc), nil
}

func (r *UserRepository) docRef(ctx context.Context, userID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("user repository not initialised")
	}
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, errors.New("user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(usersCollection).Doc(id), nil
}

func fromDomainAccount(account domain.UserAccount) userDocument {
	return userDocument{
		Username:             strings.TrimSpace(account.Username),
		Email:                strings.ToLower(strings.TrimSpace(account.Email)),
		PasswordHash:         account.PasswordHash,
		Role:                 strings.ToLower(strings.TrimSpace(string(account.Role))),
		PasswordResetToken:   account.PasswordResetToken,
		PasswordResetExpires: account.PasswordResetExpires,
		CreatedAt:            account.CreatedAt,
		UpdatedAt:            account.UpdatedAt,
	}
}

func toDomainAccount(id string, doc userDocument) domain.UserAccount {
	return domain.UserAccount{
		ID:                   id,
		Username:             doc.Username,
		Email:                doc.Email,
		PasswordHash:         doc.PasswordHash,
		Role:                 domain.Role(doc.Role),
		PasswordResetToken:   doc.PasswordResetToken,
		PasswordResetExpires: doc.PasswordResetExpires,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
	}
}
