package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/types"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByMobile(ctx context.Context, mobile string) (*types.User, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, criteria *types.UserSearchCriteria) ([]*types.User, error) {
	args := m.Called(ctx, criteria)
	return args.Get(0).([]*types.User), args.Error(1)
}

// Test setup helper
func setupTestService() (*Service, *MockUserRepository) {
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.AccessTokenTTL = 86400
	cfg.JWT.Issuer = "health-care"
	cfg.JWT.Audience = "health-care-users"

	log := logger.New("debug")
	mockRepo := &MockUserRepository{}

	service := NewService(cfg, log, mockRepo, NewPasswordManager(), NewJWTIssuer(&cfg.JWT))
	return service, mockRepo
}

func TestRegisterClient_Success(t *testing.T) {
	service, mockRepo := setupTestService()

	req := &types.UserRegistrationRequest{
		Name:     "Asha Rao",
		Mobile:   "9876543210",
		Password: "secret123",
		City:     "Bengaluru",
	}

	mockRepo.On("GetByMobile", mock.Anything, "9876543210").
		Return(nil, types.NewNotFoundError("USER_NOT_FOUND", "User not found"))
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*types.User")).Return(nil)

	user, err := service.RegisterClient(context.Background(), req)

	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, types.RoleClient, user.Role)
	assert.True(t, user.IsActive)
	assert.Equal(t, "C", user.ID[:1])
	assert.NotEqual(t, "secret123", user.PasswordHash)
	mockRepo.AssertExpectations(t)
}

func TestRegisterClient_DuplicateMobile(t *testing.T) {
	service, mockRepo := setupTestService()

	existing := &types.User{ID: "C111111", Mobile: "9876543210"}
	mockRepo.On("GetByMobile", mock.Anything, "9876543210").Return(existing, nil)

	_, err := service.RegisterClient(context.Background(), &types.UserRegistrationRequest{
		Name:     "Asha Rao",
		Mobile:   "9876543210",
		Password: "secret123",
	})

	assert.Error(t, err)
	assert.True(t, types.IsConflict(err))
	mockRepo.AssertNotCalled(t, "Create")
}

func TestRegisterClient_ValidationError(t *testing.T) {
	service, _ := setupTestService()

	tests := []struct {
		name string
		req  *types.UserRegistrationRequest
	}{
		{"missing name", &types.UserRegistrationRequest{Mobile: "9876543210", Password: "secret123"}},
		{"missing mobile", &types.UserRegistrationRequest{Name: "Asha", Password: "secret123"}},
		{"bad mobile", &types.UserRegistrationRequest{Name: "Asha", Mobile: "12345", Password: "secret123"}},
		{"short password", &types.UserRegistrationRequest{Name: "Asha", Mobile: "9876543210", Password: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.RegisterClient(context.Background(), tt.req)
			assert.Error(t, err)
			assert.True(t, types.IsValidation(err))
		})
	}
}

func TestRegisterEmployee_DefaultsToPractitioner(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("GetByMobile", mock.Anything, "9000000001").
		Return(nil, types.NewNotFoundError("USER_NOT_FOUND", "User not found"))
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*types.User")).Return(nil)

	user, err := service.RegisterEmployee(context.Background(), &types.UserRegistrationRequest{
		Name:     "Ravi Kumar",
		Mobile:   "9000000001",
		Password: "secret123",
	})

	assert.NoError(t, err)
	assert.Equal(t, types.RolePractitioner, user.Role)
	assert.Equal(t, "P", user.ID[:1])
}

func TestRegisterEmployee_RejectsNonEmployeeRole(t *testing.T) {
	service, _ := setupTestService()

	_, err := service.RegisterEmployee(context.Background(), &types.UserRegistrationRequest{
		Name:     "Ravi Kumar",
		Mobile:   "9000000001",
		Password: "secret123",
		Role:     types.RoleAdmin,
	})

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestAuthenticate_Success(t *testing.T) {
	service, mockRepo := setupTestService()

	pm := NewPasswordManager()
	hash, _ := pm.HashPassword("secret123")

	user := &types.User{
		ID:           "P123456",
		Name:         "Ravi Kumar",
		Mobile:       "9000000001",
		Role:         types.RolePractitioner,
		PasswordHash: hash,
		IsActive:     true,
	}

	mockRepo.On("GetByMobile", mock.Anything, "9000000001").Return(user, nil)

	token, err := service.Authenticate(context.Background(), &types.Credentials{
		Mobile:   "9000000001",
		Password: "secret123",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(86400), token.ExpiresIn)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	service, mockRepo := setupTestService()

	pm := NewPasswordManager()
	hash, _ := pm.HashPassword("secret123")

	user := &types.User{
		ID:           "P123456",
		Mobile:       "9000000001",
		PasswordHash: hash,
		IsActive:     true,
	}

	mockRepo.On("GetByMobile", mock.Anything, "9000000001").Return(user, nil)

	_, err := service.Authenticate(context.Background(), &types.Credentials{
		Mobile:   "9000000001",
		Password: "wrong-password",
	})

	assert.Error(t, err)
	assert.Equal(t, types.ErrorTypeAuthentication, types.ErrorTypeOf(err))
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	service, mockRepo := setupTestService()

	user := &types.User{
		ID:       "P123456",
		Mobile:   "9000000001",
		IsActive: false,
	}

	mockRepo.On("GetByMobile", mock.Anything, "9000000001").Return(user, nil)

	_, err := service.Authenticate(context.Background(), &types.Credentials{
		Mobile:   "9000000001",
		Password: "secret123",
	})

	assert.Error(t, err)
	assert.Equal(t, types.ErrorTypeAuthentication, types.ErrorTypeOf(err))
}

func TestActiveEmployees_CombinesRoles(t *testing.T) {
	service, mockRepo := setupTestService()

	practitioners := []*types.User{{ID: "P200001", Role: types.RolePractitioner}}
	caretakers := []*types.User{{ID: "P200002", Role: types.RoleCaretaker}}

	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(c *types.UserSearchCriteria) bool {
		return c.Role == types.RolePractitioner
	})).Return(practitioners, nil)
	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(c *types.UserSearchCriteria) bool {
		return c.Role == types.RoleCaretaker
	})).Return(caretakers, nil)

	employees, err := service.ActiveEmployees(context.Background())

	assert.NoError(t, err)
	assert.Len(t, employees, 2)
}

func TestDeactivateUser_SetsInactive(t *testing.T) {
	service, mockRepo := setupTestService()

	mockRepo.On("Update", mock.Anything, "C123456", map[string]interface{}{"is_active": false}).Return(nil)

	err := service.DeactivateUser(context.Background(), "C123456")

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
