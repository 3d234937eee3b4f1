package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventure/eventure/internal/auth"
	"github.com/eventure/eventure/internal/logger"
	"github.com/eventure/eventure/internal/model"
	"github.com/eventure/eventure/internal/token"
)

// IdentityProvider is the external OAuth collaborator: it exposes an
// authorization redirect, exchanges codes for identity assertions, and
// verifies them against the provider's published keys.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) (auth.ProviderClaims, error)
}

// dummyHash keeps failed sign-ins on the same bcrypt code path whether or
// not the email exists, so response timing does not reveal which emails
// are registered.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// IdentityService validates credentials and issues signed identity tokens.
// All authentication paths converge on the same token shape.
type IdentityService struct {
	users    model.UserStore
	tokens   *token.Manager
	provider IdentityProvider
	validate *validator.Validate
	logger   *logger.Logger
}

// NewIdentityService constructs an IdentityService with its dependencies.
func NewIdentityService(
	users model.UserStore,
	tokens *token.Manager,
	provider IdentityProvider,
	logger *logger.Logger,
) *IdentityService {
	return &IdentityService{
		users:    users,
		tokens:   tokens,
		provider: provider,
		validate: validator.New(),
		logger:   logger,
	}
}

// SignUp creates a password-based account and returns a signed token.
func (s *IdentityService) SignUp(ctx context.Context, req model.SignUpRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := s.validate.Struct(req); err != nil {
		return "", model.WrapError(model.KindValidation, "invalid signup payload", err)
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return "", model.NewError(model.KindConflict, "email already in use")
	} else if !model.IsKind(err, model.KindNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", model.WrapError(model.KindValidation, "unusable password", err)
	}

	user, err := s.users.Create(ctx, model.User{
		ID:         uuid.New(),
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       model.RoleUser,
		Credential: model.PasswordCredential(hash),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("identity: user signed up", "user_id", user.ID, "email", user.Email)
	return s.issueToken(user)
}

// SignIn verifies an email/password pair and returns a signed token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *IdentityService) SignIn(ctx context.Context, req model.SignInRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return "", model.NewError(model.KindUnauthenticated, "invalid credentials")
		}
		return "", err
	}

	hash := user.Credential.PasswordHash
	if user.Credential.Type != model.CredentialPassword {
		// Provider-only account: run the comparison anyway, then reject.
		hash = dummyHash
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil ||
		user.Credential.Type != model.CredentialPassword {
		s.logger.Info("identity: sign-in rejected", "email", req.Email)
		return "", model.NewError(model.KindUnauthenticated, "invalid credentials")
	}

	return s.issueToken(user)
}

// AuthCodeURL returns the provider's authorization redirect URL.
func (s *IdentityService) AuthCodeURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// VerifyExternalIdentity exchanges an authorization code for a verified
// provider assertion, finds or creates the matching account, and returns
// a signed token. An existing password account with the same email is
// linked rather than duplicated.
func (s *IdentityService) VerifyExternalIdentity(ctx context.Context, code string) (string, error) {
	idToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	claims, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByProviderID(ctx, claims.Subject)
	if err == nil {
		return s.issueToken(user)
	}
	if !model.IsKind(err, model.KindNotFound) {
		return "", err
	}

	email := normalizeEmail(claims.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		linked, err := s.users.LinkProvider(ctx, existing.ID, claims.Subject)
		if err != nil {
			return "", err
		}
		s.logger.Info("identity: linked provider to existing account", "user_id", linked.ID)
		return s.issueToken(linked)
	}
	if !model.IsKind(err, model.KindNotFound) {
		return "", err
	}

	firstName := claims.GivenName
	if firstName == "" {
		firstName, _, _ = strings.Cut(email, "@")
	}
	user, err = s.users.Create(ctx, model.User{
		ID:         uuid.New(),
		Email:      email,
		FirstName:  firstName,
		LastName:   claims.FamilyName,
		Role:       model.RoleUser,
		Credential: model.ProviderCredential(claims.Subject),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("identity: created account from provider assertion", "user_id", user.ID)
	return s.issueToken(user)
}

// Me resolves the stored user behind a verified identity.
func (s *IdentityService) Me(ctx context.Context, identity model.Identity) (model.User, error) {
	return s.users.GetByID(ctx, identity.ID)
}

func (s *IdentityService) issueToken(user model.User) (string, error) {
	return s.tokens.Issue(model.Identity{
		ID:    user.ID,
		Name:  user.FullName(),
		Email: user.Email,
		Role:  user.Role,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
