package interfaces

import (
	"context"

	"github.com/Yadlapure/health-care/pkg/types"
)

// IdentityService defines the interface for the user directory and auth
type IdentityService interface {
	// Registration
	RegisterClient(ctx context.Context, req *types.UserRegistrationRequest) (*types.User, error)
	RegisterEmployee(ctx context.Context, req *types.UserRegistrationRequest) (*types.User, error)

	// Authentication
	Authenticate(ctx context.Context, credentials *types.Credentials) (*types.AuthToken, error)

	// Directory
	GetUser(ctx context.Context, userID string) (*types.User, error)
	ListUsers(ctx context.Context, criteria *types.UserSearchCriteria) ([]*types.User, error)
	ActiveEmployees(ctx context.Context) ([]*types.User, error)
	UpdateUser(ctx context.Context, userID string, updates *types.UserUpdates) (*types.User, error)
	DeactivateUser(ctx context.Context, userID string) error

	// Service management
	Start(addr string) error
	Stop() error
}

// UserRepository defines the interface for user data persistence
type UserRepository interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	GetByMobile(ctx context.Context, mobile string) (*types.User, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	List(ctx context.Context, criteria *types.UserSearchCriteria) ([]*types.User, error)
}

// PasswordManager defines the interface for password operations
type PasswordManager interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hashedPassword, password string) (bool, error)
}

// TokenIssuer defines the interface for issuing access tokens
type TokenIssuer interface {
	Issue(user *types.User) (*types.AuthToken, error)
}
