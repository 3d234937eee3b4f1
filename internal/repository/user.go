package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventure/eventure/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

// UserRepository handles persistence for users.
type UserRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

const userColumns = `id, email, password_hash, provider_id, first_name, last_name, role, created_at`

// Create inserts a new user. A duplicate email or provider subject id
// fails with conflict.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	var providerID *string
	if user.Credential.ProviderID != "" {
		providerID = &user.Credential.ProviderID
	}
	var passwordHash []byte
	if user.Credential.Type == model.CredentialPassword {
		passwordHash = user.Credential.PasswordHash
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, provider_id, first_name, last_name, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, passwordHash, providerID, user.FirstName, user.LastName, user.Role, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.NewError(model.KindConflict, "email already in use")
		}
		return model.User{}, storeErr("insert user", err)
	}
	return user, nil
}

// GetByID returns a single user or a not_found error.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user owning the given email, or not_found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByProviderID returns the user linked to the given provider subject id,
// or not_found.
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (model.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE provider_id = $1`, providerID)
}

// LinkProvider attaches a provider subject id to an existing account so a
// password-based user can also sign in through the provider.
func (r *UserRepository) LinkProvider(ctx context.Context, id uuid.UUID, providerID string) (model.User, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET provider_id = $2 WHERE id = $1`,
		id, providerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.NewError(model.KindConflict, "provider identity already linked to another account")
		}
		return model.User{}, storeErr("link provider", err)
	}
	if tag.RowsAffected() == 0 {
		return model.User{}, model.NewError(model.KindNotFound, "user not found")
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) getBy(ctx context.Context, query string, arg any) (model.User, error) {
	ctx, cancel := opTimeout(ctx, r.timeout)
	defer cancel()

	var (
		user         model.User
		passwordHash []byte
		providerID   *string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &passwordHash, &providerID,
		&user.FirstName, &user.LastName, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.NewError(model.KindNotFound, "user not found")
		}
		return model.User{}, storeErr("get user", err)
	}

	switch {
	case len(passwordHash) > 0:
		user.Credential = model.PasswordCredential(passwordHash)
		if providerID != nil {
			user.Credential.ProviderID = *providerID
		}
	case providerID != nil:
		user.Credential = model.ProviderCredential(*providerID)
	}
	return user, nil
}
