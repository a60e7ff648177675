package visits

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Yadlapure/health-care/pkg/database"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/types"
)

// Repository implements visit and visit-day persistence
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new visit repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const visitColumns = `id, client_id, employee_id, from_ts, to_ts, is_active, main_status, location_lat, location_lng, created_at, updated_at`

// CreateWithDetails creates a visit and all of its per-day rows in a single
// transaction. The overlap check runs inside the same transaction so two
// concurrent assignments for the same employee or client cannot both commit.
func (r *Repository) CreateWithDetails(ctx context.Context, visit *types.Visit, details []types.VisitDetail) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the party rows first. The overlap count alone cannot serialize
	// two concurrent assignments that each see zero conflicting visits, so
	// both writers queue on the client and employee user rows instead.
	lockQuery := `SELECT id FROM users WHERE id IN ($1, $2) FOR UPDATE`
	if _, err := tx.ExecContext(ctx, lockQuery, visit.ClientID, visit.EmployeeID); err != nil {
		return fmt.Errorf("failed to lock assignment parties: %w", err)
	}

	overlapQuery := `
		SELECT COUNT(*) FROM visits
		WHERE is_active = TRUE
			AND (employee_id = $1 OR client_id = $2)
			AND from_ts <= $4 AND to_ts >= $3`

	var conflicts int
	err = tx.QueryRowContext(ctx, overlapQuery,
		visit.EmployeeID, visit.ClientID, visit.FromTS, visit.ToTS).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check overlapping visits: %w", err)
	}
	if conflicts > 0 {
		return types.NewConflictError(types.ErrCodeScheduleOverlap,
			"Requested range overlaps an existing active assignment",
			map[string]interface{}{
				"employee_id": visit.EmployeeID,
				"client_id":   visit.ClientID,
			})
	}

	insertVisit := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.ExecContext(ctx, insertVisit,
		visit.ID,
		visit.ClientID,
		visit.EmployeeID,
		visit.FromTS,
		visit.ToTS,
		visit.IsActive,
		visit.MainStatus,
		visit.Location.Lat,
		visit.Location.Lng,
		visit.CreatedAt,
		visit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}

	if err := insertDetails(ctx, tx, details); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit visit creation: %w", err)
	}

	r.logger.WithVisitID(visit.ID).Infof("Visit created with %d day rows", len(details))
	return nil
}

// GetByID retrieves a visit with its day rows ordered by date
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`

	visit, err := scanVisit(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	details, err := r.detailsForVisit(ctx, id)
	if err != nil {
		return nil, err
	}
	visit.Details = details

	return visit, nil
}

// GetActiveByEmployee retrieves all active visits assigned to an employee
func (r *Repository) GetActiveByEmployee(ctx context.Context, employeeID string) ([]*types.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE employee_id = $1 AND is_active = TRUE`
	return r.queryVisitsArgs(ctx, query, employeeID)
}

// GetActiveByClient retrieves all active visits for a client
func (r *Repository) GetActiveByClient(ctx context.Context, clientID string) ([]*types.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE client_id = $1 AND is_active = TRUE`
	return r.queryVisitsArgs(ctx, query, clientID)
}

// List retrieves visits matching the given filters, details included
func (r *Repository) List(ctx context.Context, filters *types.VisitFilters) ([]*types.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filters != nil {
		if filters.ClientID != "" {
			query += fmt.Sprintf(" AND client_id = $%d", argIndex)
			args = append(args, filters.ClientID)
			argIndex++
		}
		if filters.EmployeeID != "" {
			query += fmt.Sprintf(" AND employee_id = $%d", argIndex)
			args = append(args, filters.EmployeeID)
			argIndex++
		}
		if filters.IsActive != nil {
			query += fmt.Sprintf(" AND is_active = $%d", argIndex)
			args = append(args, *filters.IsActive)
			argIndex++
		}
		if filters.From != nil {
			query += fmt.Sprintf(" AND to_ts >= $%d", argIndex)
			args = append(args, *filters.From)
			argIndex++
		}
		if filters.To != nil {
			query += fmt.Sprintf(" AND from_ts <= $%d", argIndex)
			args = append(args, *filters.To)
			argIndex++
		}
	}

	query += " ORDER BY from_ts DESC"

	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
		if filters.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, filters.Offset)
		}
	}

	visits, err := r.queryVisitsArgs(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	for _, visit := range visits {
		details, err := r.detailsForVisit(ctx, visit.ID)
		if err != nil {
			return nil, err
		}
		visit.Details = details
	}

	return visits, nil
}

// SetActive toggles a visit's active flag
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE visits SET is_active = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to update visit active flag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError("VISIT_NOT_FOUND", "Visit not found")
	}

	return nil
}

// ExtendRange pushes a visit's end date forward and appends its new day rows
// in one transaction
func (r *Repository) ExtendRange(ctx context.Context, id string, newTo time.Time, newDetails []types.VisitDetail) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE visits SET to_ts = $1, updated_at = NOW() WHERE id = $2 AND is_active = TRUE`,
		newTo, id)
	if err != nil {
		return fmt.Errorf("failed to extend visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError("VISIT_NOT_FOUND", "Active visit not found")
	}

	if err := insertDetails(ctx, tx, newDetails); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit visit extension: %w", err)
	}

	r.logger.WithVisitID(id).Infof("Visit extended with %d new day rows", len(newDetails))
	return nil
}

// UpdateDetail persists a day row's status and event payloads
func (r *Repository) UpdateDetail(ctx context.Context, detail *types.VisitDetail) error {
	checkIn, err := marshalNullable(detail.CheckIn)
	if err != nil {
		return err
	}
	checkOut, err := marshalNullable(detail.CheckOut)
	if err != nil {
		return err
	}
	vitals, err := marshalNullable(detail.Vitals)
	if err != nil {
		return err
	}

	query := `
		UPDATE visit_details
		SET daily_status = $1, check_in = $2, check_out = $3, vitals = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, detail.DailyStatus, checkIn, checkOut, vitals, detail.ID)
	if err != nil {
		return fmt.Errorf("failed to update visit detail: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError("DETAIL_NOT_FOUND", "Visit day not found")
	}

	return nil
}

// UpdateMainStatus persists the derived visit-level status
func (r *Repository) UpdateMainStatus(ctx context.Context, id string, status types.MainStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE visits SET main_status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update main status: %w", err)
	}
	return nil
}

// GetDetailsByEmployeeRange retrieves an employee's day rows inside a date
// window, across all of their visits
func (r *Repository) GetDetailsByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]*types.VisitDetail, error) {
	query := `
		SELECT d.id, d.visit_id, d.for_date, d.daily_status, d.check_in, d.check_out, d.vitals, d.created_at, d.updated_at
		FROM visit_details d
		JOIN visits v ON v.id = d.visit_id
		WHERE v.employee_id = $1 AND d.for_date >= $2 AND d.for_date <= $3
		ORDER BY d.for_date ASC`

	rows, err := r.db.QueryContext(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee day rows: %w", err)
	}
	defer rows.Close()

	var details []*types.VisitDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}

	return details, rows.Err()
}

func (r *Repository) detailsForVisit(ctx context.Context, visitID string) ([]types.VisitDetail, error) {
	query := `
		SELECT id, visit_id, for_date, daily_status, check_in, check_out, vitals, created_at, updated_at
		FROM visit_details
		WHERE visit_id = $1
		ORDER BY for_date ASC`

	rows, err := r.db.QueryContext(ctx, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visit details: %w", err)
	}
	defer rows.Close()

	var details []types.VisitDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}

	return details, rows.Err()
}

func (r *Repository) queryVisitsArgs(ctx context.Context, query string, args ...interface{}) ([]*types.Visit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []*types.Visit
	for rows.Next() {
		var visit types.Visit
		err := rows.Scan(
			&visit.ID,
			&visit.ClientID,
			&visit.EmployeeID,
			&visit.FromTS,
			&visit.ToTS,
			&visit.IsActive,
			&visit.MainStatus,
			&visit.Location.Lat,
			&visit.Location.Lng,
			&visit.CreatedAt,
			&visit.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, &visit)
	}

	return visits, rows.Err()
}

func insertDetails(ctx context.Context, tx *sql.Tx, details []types.VisitDetail) error {
	insertDetail := `
		INSERT INTO visit_details (id, visit_id, for_date, daily_status, check_in, check_out, vitals, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range details {
		d := &details[i]
		checkIn, err := marshalNullable(d.CheckIn)
		if err != nil {
			return err
		}
		checkOut, err := marshalNullable(d.CheckOut)
		if err != nil {
			return err
		}
		vitals, err := marshalNullable(d.Vitals)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, insertDetail,
			d.ID, d.VisitID, d.ForDate, d.DailyStatus, checkIn, checkOut, vitals, d.CreatedAt, d.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert visit detail: %w", err)
		}
	}

	return nil
}

func scanVisit(row *sql.Row) (*types.Visit, error) {
	var visit types.Visit
	err := row.Scan(
		&visit.ID,
		&visit.ClientID,
		&visit.EmployeeID,
		&visit.FromTS,
		&visit.ToTS,
		&visit.IsActive,
		&visit.MainStatus,
		&visit.Location.Lat,
		&visit.Location.Lng,
		&visit.CreatedAt,
		&visit.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("VISIT_NOT_FOUND", "Visit not found")
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDetail(row rowScanner) (*types.VisitDetail, error) {
	var detail types.VisitDetail
	var checkIn, checkOut, vitals []byte

	err := row.Scan(
		&detail.ID,
		&detail.VisitID,
		&detail.ForDate,
		&detail.DailyStatus,
		&checkIn,
		&checkOut,
		&vitals,
		&detail.CreatedAt,
		&detail.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan visit detail: %w", err)
	}

	if err := unmarshalNullable(checkIn, &detail.CheckIn); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(checkOut, &detail.CheckOut); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(vitals, &detail.Vitals); err != nil {
		return nil, err
	}

	return &detail, nil
}

func marshalNullable(v interface{}) (interface{}, error) {
	switch value := v.(type) {
	case *types.CheckEvent:
		if value == nil {
			return nil, nil
		}
	case *types.Vitals:
		if value == nil {
			return nil, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detail payload: %w", err)
	}
	return data, nil
}

func unmarshalNullable[T any](data []byte, target **T) error {
	if len(data) == 0 {
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to unmarshal detail payload: %w", err)
	}
	*target = &value
	return nil
}
