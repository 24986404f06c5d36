package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/core/logger"
)

const insertRecord = `INSERT INTO flow_records
	(id, kind, tenant_id, sender_id, language, fields, score, status, created_at)
	VALUES (:id, :kind, :tenant_id, :sender_id, :language, :fields, :score, :status, :created_at)`

// recordRow is the flow_records row layout. Fields are stored as a JSON object.
type recordRow struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	TenantID  string    `db:"tenant_id"`
	SenderID  string    `db:"sender_id"`
	Language  string    `db:"language"`
	Fields    string    `db:"fields"`
	Score     string    `db:"score"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// SQLStore appends records to the flow_records table on Postgres or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLStore wraps an open, migrated connection.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, driver: db.DriverName()}
}

// Append implements Sink.
func (s *SQLStore) Append(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.Stamp(time.Now())
	fields, err := json.Marshal(cloneFields(r.Fields))
	if err != nil {
		return fmt.Errorf("records: encode fields: %w", err)
	}
	row := recordRow{
		ID:        r.ID.String(),
		Kind:      string(r.Kind),
		TenantID:  r.TenantID,
		SenderID:  r.SenderID,
		Language:  r.Language,
		Fields:    string(fields),
		Score:     r.Score,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
	}

	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertRecord, row); err != nil {
		logger.Error(ctx, "records", "record.insert",
			slog.String("driver", s.driver),
			slog.String("record_kind", row.Kind),
			slog.String("record_id", row.ID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("records: insert: %w", err)
	}
	logger.Debug(ctx, "records", "record.insert",
		slog.String("driver", s.driver),
		slog.String("record_kind", row.Kind),
		slog.String("record_id", row.ID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Count returns the number of stored records of kind for tenantID. An empty kind counts all kinds.
func (s *SQLStore) Count(ctx context.Context, tenantID string, kind Kind) (int, error) {
	q := `SELECT COUNT(*) FROM flow_records WHERE tenant_id = ?`
	args := []any{tenantID}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(q), args...); err != nil {
		return 0, fmt.Errorf("records: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
