package postgres

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) BaseRepository {
	if m == nil {
		m = metrics.NewNop()
	}
	return BaseRepository{
		db:      db,
		dialect: goqu.Dialect("postgres"),
		metrics: m,
	}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// observe records the outcome of a database operation.
func (r *BaseRepository) observe(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
}
