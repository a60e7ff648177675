package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RoleClient       UserRole = "client"
	RolePractitioner UserRole = "practitioner"
	RoleCaretaker    UserRole = "caretaker"
	RoleCoordinator  UserRole = "coordinator"
	RoleAdmin        UserRole = "admin"
)

// IsEmployeeRole reports whether the role can be assigned to visits
func (r UserRole) IsEmployeeRole() bool {
	return r == RolePractitioner || r == RoleCaretaker
}

// User represents a system user: a client receiving care, a field employee
// (practitioner or caretaker), a coordinator, or an admin
type User struct {
	ID           string    `json:"user_id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Mobile       string    `json:"mobile" db:"mobile"`
	Email        string    `json:"email,omitempty" db:"email"`
	Role         UserRole  `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Address      string    `json:"address,omitempty" db:"address"`
	City         string    `json:"city,omitempty" db:"city"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserClaims represents JWT token claims
type UserClaims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Mobile string   `json:"mobile"`
	Role   UserRole `json:"role"`
}

// UserRegistrationRequest represents user registration data
type UserRegistrationRequest struct {
	Name     string   `json:"name" validate:"required,min=2,max=100"`
	Mobile   string   `json:"mobile" validate:"required,len=10"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required"`
	Address  string   `json:"address,omitempty"`
	City     string   `json:"city,omitempty"`
}

// Credentials represents user login credentials
type Credentials struct {
	Mobile   string `json:"mobile" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthToken represents an authentication token response
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        *User     `json:"user,omitempty"`
}

// UserUpdates represents updates to user information
type UserUpdates struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UserSearchCriteria represents search criteria for users
type UserSearchCriteria struct {
	Role     UserRole `json:"role,omitempty"`
	Mobile   string   `json:"mobile,omitempty"`
	City     string   `json:"city,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}
