// Package database opens the durable backend's PostgreSQL connection and
// runs its migrations (spec §4.4), grounded on the teacher's
// stem/pkg/database connection-and-migration wiring.
package database

import (
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/jmoiron/sqlx"
)

// Settings is the subset of config.Config the durable backend needs to
// open a connection pool.
type Settings struct {
	Driver          string
	Host            string
	Port            int
	UserName        string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens a sqlx connection pool against PostgreSQL using the
// lib/pq driver, applying the configured pool limits.
func Connect(s Settings) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.UserName, s.Password, s.Name, s.SSLMode,
	)

	db, err := sqlx.Connect(s.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", s.Driver, err)
	}

	db.SetMaxOpenConns(s.MaxOpenConns)
	db.SetMaxIdleConns(s.MaxIdleConns)
	db.SetConnMaxLifetime(s.ConnMaxLifetime)

	return db, nil
}
