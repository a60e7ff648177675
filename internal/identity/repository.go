package identity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Yadlapure/health-care/pkg/database"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/types"
)

// UserRepository implements user data persistence
type UserRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

const userColumns = `id, name, mobile, email, role, password_hash, address, city, is_active, created_at, updated_at`

// Create creates a new user in the database
func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Mobile,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.Address,
		user.City,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Detail, "mobile") {
				return types.NewConflictError("MOBILE_EXISTS", "User with this mobile number already exists", nil)
			}
			return types.NewConflictError("DUPLICATE_USER", "User already exists", nil)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Infof("User created successfully: %s", user.ID)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByMobile retrieves a user by mobile number
func (r *UserRepository) GetByMobile(ctx context.Context, mobile string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mobile = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, mobile))
}

// Update applies the given column updates to a user
func (r *UserRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)
	argIndex := 1

	for column, value := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError("USER_NOT_FOUND", "User not found")
	}

	return nil
}

// List retrieves users matching the given criteria
func (r *UserRepository) List(ctx context.Context, criteria *types.UserSearchCriteria) ([]*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if criteria != nil {
		if criteria.Role != "" {
			query += fmt.Sprintf(" AND role = $%d", argIndex)
			args = append(args, criteria.Role)
			argIndex++
		}
		if criteria.Mobile != "" {
			query += fmt.Sprintf(" AND mobile = $%d", argIndex)
			args = append(args, criteria.Mobile)
			argIndex++
		}
		if criteria.City != "" {
			query += fmt.Sprintf(" AND city = $%d", argIndex)
			args = append(args, criteria.City)
			argIndex++
		}
		if criteria.IsActive != nil {
			query += fmt.Sprintf(" AND is_active = $%d", argIndex)
			args = append(args, *criteria.IsActive)
			argIndex++
		}
	}

	query += " ORDER BY created_at DESC"

	if criteria != nil && criteria.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, criteria.Limit)
		argIndex++
		if criteria.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, criteria.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		var user types.User
		var email, address, city sql.NullString
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Mobile,
			&email,
			&user.Role,
			&user.PasswordHash,
			&address,
			&city,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Email = email.String
		user.Address = address.String
		user.City = city.String
		users = append(users, &user)
	}

	return users, rows.Err()
}

func (r *UserRepository) scanUser(row *sql.Row) (*types.User, error) {
	var user types.User
	var email, address, city sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Mobile,
		&email,
		&user.Role,
		&user.PasswordHash,
		&address,
		&city,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("USER_NOT_FOUND", "User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Email = email.String
	user.Address = address.String
	user.City = city.String
	return &user, nil
}
