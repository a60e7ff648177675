package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for users and visits
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	tables := []string{
		createUsersTable,
		createVisitsTable,
		createVisitDetailsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createVisitsIndexes,
		createVisitDetailsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(20) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			mobile VARCHAR(15) UNIQUE NOT NULL,
			email VARCHAR(255),
			role VARCHAR(20) NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			address TEXT,
			city VARCHAR(100),
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createVisitsTable = `
		CREATE TABLE IF NOT EXISTS visits (
			id VARCHAR(20) PRIMARY KEY,
			client_id VARCHAR(20) NOT NULL REFERENCES users(id),
			employee_id VARCHAR(20) NOT NULL REFERENCES users(id),
			from_ts TIMESTAMP WITH TIME ZONE NOT NULL,
			to_ts TIMESTAMP WITH TIME ZONE NOT NULL,
			is_active BOOLEAN DEFAULT TRUE,
			main_status VARCHAR(20) NOT NULL DEFAULT 'INITIATED',
			location_lat VARCHAR(30) NOT NULL,
			location_lng VARCHAR(30) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createVisitDetailsTable = `
		CREATE TABLE IF NOT EXISTS visit_details (
			id UUID PRIMARY KEY,
			visit_id VARCHAR(20) NOT NULL REFERENCES visits(id),
			for_date DATE NOT NULL,
			daily_status VARCHAR(20) NOT NULL DEFAULT 'INITIATED',
			check_in JSONB,
			check_out JSONB,
			vitals JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (visit_id, for_date)
		);`
)

// SQL DDL statements for index creation
const (
	createUsersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_users_mobile ON users(mobile);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
		CREATE INDEX IF NOT EXISTS idx_users_is_active ON users(is_active);`

	createVisitsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_visits_client_active ON visits(client_id, is_active);
		CREATE INDEX IF NOT EXISTS idx_visits_employee_active ON visits(employee_id, is_active);
		CREATE INDEX IF NOT EXISTS idx_visits_from_ts ON visits(from_ts);`

	createVisitDetailsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_visit_details_visit_id ON visit_details(visit_id);
		CREATE INDEX IF NOT EXISTS idx_visit_details_for_date ON visit_details(for_date);`
)
