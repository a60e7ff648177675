package identity

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gorilla/mux"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/interfaces"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/monitoring"
	"github.com/Yadlapure/health-care/pkg/types"
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Service implements the identity directory and authentication
type Service struct {
	config          *config.Config
	logger          *logger.Logger
	userRepo        interfaces.UserRepository
	passwordManager interfaces.PasswordManager
	tokenIssuer     interfaces.TokenIssuer
	health          *monitoring.HealthManager
	server          *http.Server
}

// NewService creates a new identity service instance
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	userRepo interfaces.UserRepository,
	passwordManager interfaces.PasswordManager,
	tokenIssuer interfaces.TokenIssuer,
) *Service {
	return &Service{
		config:          cfg,
		logger:          log,
		userRepo:        userRepo,
		passwordManager: passwordManager,
		tokenIssuer:     tokenIssuer,
	}
}

// SetHealthManager attaches dependency health checks exposed on
// /health/detailed
func (s *Service) SetHealthManager(hm *monitoring.HealthManager) {
	s.health = hm
}

// RegisterClient registers a new client receiving home care
func (s *Service) RegisterClient(ctx context.Context, req *types.UserRegistrationRequest) (*types.User, error) {
	req.Role = types.RoleClient
	return s.register(ctx, req, types.ClientIDPrefix)
}

// RegisterEmployee registers a new field employee. Callers must enforce that
// only admins reach this operation.
func (s *Service) RegisterEmployee(ctx context.Context, req *types.UserRegistrationRequest) (*types.User, error) {
	if req.Role == "" {
		req.Role = types.RolePractitioner
	}
	if !req.Role.IsEmployeeRole() {
		return nil, types.NewValidationError("INVALID_ROLE", "Employee role must be practitioner or caretaker",
			map[string]interface{}{"role": req.Role})
	}
	return s.register(ctx, req, types.EmployeeIDPrefix)
}

func (s *Service) register(ctx context.Context, req *types.UserRegistrationRequest, idPrefix string) (*types.User, error) {
	s.logger.Infof("Registering new user: mobile=%s role=%s", req.Mobile, req.Role)

	if err := s.validateRegistrationRequest(req); err != nil {
		return nil, err
	}

	// Check if mobile is already registered
	if existing, _ := s.userRepo.GetByMobile(ctx, req.Mobile); existing != nil {
		return nil, types.NewConflictError("MOBILE_EXISTS", "User with this mobile number already exists", nil)
	}

	hash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &types.User{
		ID:           types.NewID(idPrefix),
		Name:         req.Name,
		Mobile:       req.Mobile,
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: hash,
		Address:      req.Address,
		City:         req.City,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Infof("User registered successfully: %s", user.ID)
	return user, nil
}

// Authenticate verifies credentials and returns a signed access token
func (s *Service) Authenticate(ctx context.Context, credentials *types.Credentials) (*types.AuthToken, error) {
	if credentials.Mobile == "" || credentials.Password == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Mobile and password are required", nil)
	}

	user, err := s.userRepo.GetByMobile(ctx, credentials.Mobile)
	if err != nil {
		return nil, types.NewAuthenticationError("INVALID_CREDENTIALS", "Invalid mobile or password")
	}

	if !user.IsActive {
		return nil, types.NewAuthenticationError("USER_INACTIVE", "User account is inactive")
	}

	ok, err := s.passwordManager.VerifyPassword(user.PasswordHash, credentials.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.logger.Audit(user.ID, "login", "auth", false, nil)
		return nil, types.NewAuthenticationError("INVALID_CREDENTIALS", "Invalid mobile or password")
	}

	token, err := s.tokenIssuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.logger.WithUserID(user.ID).Info("User authenticated successfully")
	return token, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*types.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers retrieves users matching the given criteria
func (s *Service) ListUsers(ctx context.Context, criteria *types.UserSearchCriteria) ([]*types.User, error) {
	return s.userRepo.List(ctx, criteria)
}

// ActiveEmployees returns all active field employees. The assignment planner
// filters this set by schedule overlap.
func (s *Service) ActiveEmployees(ctx context.Context) ([]*types.User, error) {
	active := true
	practitioners, err := s.userRepo.List(ctx, &types.UserSearchCriteria{
		Role:     types.RolePractitioner,
		IsActive: &active,
	})
	if err != nil {
		return nil, err
	}

	caretakers, err := s.userRepo.List(ctx, &types.UserSearchCriteria{
		Role:     types.RoleCaretaker,
		IsActive: &active,
	})
	if err != nil {
		return nil, err
	}

	return append(practitioners, caretakers...), nil
}

// UpdateUser updates user profile fields
func (s *Service) UpdateUser(ctx context.Context, userID string, updates *types.UserUpdates) (*types.User, error) {
	columns := make(map[string]interface{})
	if updates.Name != "" {
		columns["name"] = updates.Name
	}
	if updates.Email != "" {
		columns["email"] = updates.Email
	}
	if updates.Address != "" {
		columns["address"] = updates.Address
	}
	if updates.City != "" {
		columns["city"] = updates.City
	}
	if updates.IsActive != nil {
		columns["is_active"] = *updates.IsActive
	}

	if len(columns) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	if err := s.userRepo.Update(ctx, userID, columns); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(ctx, userID)
}

// DeactivateUser deactivates a user account. Records are never hard-deleted.
func (s *Service) DeactivateUser(ctx context.Context, userID string) error {
	if err := s.userRepo.Update(ctx, userID, map[string]interface{}{"is_active": false}); err != nil {
		return err
	}
	s.logger.Audit(userID, "deactivate", "users", true, nil)
	return nil
}

// Start starts the identity service HTTP server
func (s *Service) Start(addr string) error {
	router := mux.NewRouter()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	s.logger.Infof("Starting Identity Service on %s", addr)
	return s.server.ListenAndServe()
}

// Stop stops the identity service
func (s *Service) Stop() error {
	if s.server != nil {
		s.logger.Info("Stopping Identity Service")
		return s.server.Close()
	}
	return nil
}

func (s *Service) validateRegistrationRequest(req *types.UserRegistrationRequest) error {
	if req.Name == "" {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Name is required", nil)
	}
	if req.Mobile == "" {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Mobile is required", nil)
	}
	if !mobilePattern.MatchString(req.Mobile) {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Mobile must be a 10 digit number",
			map[string]interface{}{"mobile": req.Mobile})
	}
	if req.Password == "" {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Password is required", nil)
	}
	if len(req.Password) < 6 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Password must be at least 6 characters", nil)
	}
	return nil
}
