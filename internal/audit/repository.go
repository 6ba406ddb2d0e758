package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeFormat is fixed-width so created_at sorts as text.
	timeFormat = "2006-01-02T15:04:05.000000Z"
)

// ErrInvalidOperation is returned when a record names an unknown operation.
var ErrInvalidOperation = errors.New("audit: invalid operation")

// PinOperation is one audit trail entry.
type PinOperation struct {
	ID         string    `json:"id"`
	Controller string    `json:"controller"`
	Offset     uint32    `json:"offset"`
	Operation  string    `json:"operation"`
	Value      *int      `json:"value,omitempty"`
	Schedule   []uint32  `json:"schedule,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Source     string    `json:"source"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter controls which entries List returns. Zero values match everything.
type Filter struct {
	Controller string
	Line       *uint32 // line offset on Controller
	Operation  string
	Source     string
	Limit      int // default 50, max 200
	Offset     int // pagination offset
}

// ListResult is one page of entries.
type ListResult struct {
	Operations []PinOperation `json:"operations"`
	Total      int            `json:"total"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// Repository stores and queries the audit trail.
type Repository interface {
	Create(ctx context.Context, op *PinOperation) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on the pin_operations table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, op *PinOperation) error {
	switch op.Operation {
	case "read", "write", "blink":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperation, op.Operation)
	}

	if op.ID == "" {
		op.ID = "op-" + uuid.NewString()[:8]
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	var scheduleJSON *string
	if len(op.Schedule) > 0 {
		b, err := json.Marshal(op.Schedule)
		if err != nil {
			return fmt.Errorf("marshalling schedule: %w", err)
		}
		s := string(b)
		scheduleJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pin_operations (id, controller, line_offset, operation, value, schedule, duration_ms, source, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Controller, op.Offset, op.Operation,
		op.Value, scheduleJSON, op.DurationMS, op.Source,
		nullableString(op.Error),
		op.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting pin operation: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // WHERE clause assembly from filter fields
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Controller != "" {
		conditions = append(conditions, "controller = ?")
		args = append(args, filter.Controller)
	}
	if filter.Line != nil {
		conditions = append(conditions, "line_offset = ?")
		args = append(args, *filter.Line)
	}
	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM pin_operations " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting pin operations: %w", err)
	}

	query := "SELECT id, controller, line_offset, operation, value, schedule, duration_ms, source, error, created_at FROM pin_operations " + //nolint:gosec // WHERE built from parameterised conditions
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pin operations: %w", err)
	}
	defer rows.Close()

	ops := []PinOperation{}
	for rows.Next() {
		var op PinOperation
		var value sql.NullInt64
		var schedule, opErr sql.NullString
		var createdAt string

		if err := rows.Scan(&op.ID, &op.Controller, &op.Offset, &op.Operation,
			&value, &schedule, &op.DurationMS, &op.Source, &opErr, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning pin operation: %w", err)
		}

		if value.Valid {
			v := int(value.Int64)
			op.Value = &v
		}
		if schedule.Valid && schedule.String != "" {
			if err := json.Unmarshal([]byte(schedule.String), &op.Schedule); err != nil {
				return nil, fmt.Errorf("decoding schedule of %s: %w", op.ID, err)
			}
		}
		op.Error = opErr.String

		op.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing pin operation timestamp %q: %w", createdAt, err)
		}

		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pin operations: %w", err)
	}

	return &ListResult{
		Operations: ops,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}
