package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/http-gpio/internal/gateway"
	"github.com/nerrad567/http-gpio/internal/gpio"
	"github.com/nerrad567/http-gpio/internal/infrastructure/database"
	"github.com/nerrad567/http-gpio/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func intPtr(v int) *int { return &v }

func u32Ptr(v uint32) *uint32 { return &v }

func TestCreate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	op := &PinOperation{
		Controller: "gpiochip0",
		Offset:     4,
		Operation:  "blink",
		Value:      intPtr(1),
		Schedule:   []uint32{100, 50, 200},
		DurationMS: 350,
		Source:     "http",
	}
	if err := repo.Create(ctx, op); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(op.ID) != len("op-")+8 || op.ID[:3] != "op-" {
		t.Errorf("ID = %q, want op-xxxxxxxx", op.ID)
	}
	if op.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Operations) != 1 {
		t.Fatalf("Total = %d, len = %d; want 1, 1", result.Total, len(result.Operations))
	}
	got := result.Operations[0]
	if got.ID != op.ID || got.Controller != "gpiochip0" || got.Offset != 4 || got.Operation != "blink" {
		t.Errorf("got %+v", got)
	}
	if got.Value == nil || *got.Value != 1 {
		t.Errorf("Value = %v, want 1", got.Value)
	}
	if len(got.Schedule) != 3 || got.Schedule[2] != 200 {
		t.Errorf("Schedule = %v", got.Schedule)
	}
	if !got.CreatedAt.Equal(op.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, op.CreatedAt)
	}
}

func TestCreate_InvalidOperation(t *testing.T) {
	repo := setupRepo(t)

	err := repo.Create(context.Background(), &PinOperation{Controller: "c", Operation: "toggle", Source: "http"})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Create() error = %v, want ErrInvalidOperation", err)
	}
}

func TestList_Filters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	seed := []PinOperation{
		{Controller: "gpiochip0", Offset: 4, Operation: "write", Value: intPtr(1), Source: "http"},
		{Controller: "gpiochip0", Offset: 4, Operation: "read", Value: intPtr(1), Source: "mqtt"},
		{Controller: "gpiochip0", Offset: 5, Operation: "read", Source: "http", Error: "gpio: driver error"},
		{Controller: "gpiochip1", Offset: 4, Operation: "blink", Value: intPtr(0), Source: "http"},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seeding %d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{name: "all newest first", filter: Filter{}, wantTotal: 4, wantFirst: seed[3].ID},
		{name: "controller", filter: Filter{Controller: "gpiochip0"}, wantTotal: 3, wantFirst: seed[2].ID},
		{name: "pin", filter: Filter{Controller: "gpiochip0", Line: u32Ptr(4)}, wantTotal: 2, wantFirst: seed[1].ID},
		{name: "operation", filter: Filter{Operation: "read"}, wantTotal: 2, wantFirst: seed[2].ID},
		{name: "source", filter: Filter{Source: "mqtt"}, wantTotal: 1, wantFirst: seed[1].ID},
		{name: "page", filter: Filter{Limit: 1, Offset: 1}, wantTotal: 4, wantFirst: seed[2].ID},
		{name: "no match", filter: Filter{Controller: "nope"}, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.wantTotal)
			}
			if tt.wantFirst == "" {
				if len(result.Operations) != 0 {
					t.Errorf("got %d operations, want none", len(result.Operations))
				}
				return
			}
			if len(result.Operations) == 0 || result.Operations[0].ID != tt.wantFirst {
				t.Errorf("first = %+v, want ID %s", result.Operations, tt.wantFirst)
			}
		})
	}

	t.Run("failed read has error and no value", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Controller: "gpiochip0", Line: u32Ptr(5)})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		got := result.Operations[0]
		if got.Value != nil || got.Error != "gpio: driver error" {
			t.Errorf("got Value = %v, Error = %q", got.Value, got.Error)
		}
	})
}

func TestList_LimitClamp(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultLimit},
		{-5, defaultLimit},
		{10, 10},
		{1000, maxLimit},
	}
	for _, tt := range tests {
		result, err := repo.List(context.Background(), Filter{Limit: tt.limit, Offset: -1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Limit != tt.want || result.Offset != 0 {
			t.Errorf("Limit(%d) = %d, Offset = %d; want %d, 0", tt.limit, result.Limit, result.Offset, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	repo := setupRepo(t)
	rec := NewRecorder(repo)
	pin := gpio.NewPinID("gpiochip0", 4)
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	rec.ObservePinOperation(gateway.Event{
		Pin: pin, Operation: gateway.OperationWrite, Value: 1,
		Duration: 3 * time.Millisecond, Source: gateway.SourceHTTP, Timestamp: ts,
	})
	rec.ObservePinOperation(gateway.Event{
		Pin: pin, Operation: gateway.OperationRead,
		Err: errors.New("boom"), Source: gateway.SourceMQTT, Timestamp: ts.Add(time.Second),
	})

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Total)
	}

	failed, written := result.Operations[0], result.Operations[1]
	if failed.Operation != "read" || failed.Error != "boom" || failed.Value != nil || failed.Source != "mqtt" {
		t.Errorf("failed read = %+v", failed)
	}
	if written.Operation != "write" || written.Value == nil || *written.Value != 1 || written.DurationMS != 3 {
		t.Errorf("write = %+v", written)
	}
}

type failingRepo struct{ Repository }

func (failingRepo) Create(context.Context, *PinOperation) error { return errors.New("disk full") }

type recordingLogger struct{ msgs []string }

func (l *recordingLogger) Error(msg string, _ ...any) { l.msgs = append(l.msgs, msg) }

func TestRecorder_LogsWriteFailure(t *testing.T) {
	logger := &recordingLogger{}
	rec := NewRecorder(failingRepo{})
	rec.SetLogger(logger)

	rec.ObservePinOperation(gateway.Event{Pin: gpio.NewPinID("c", 0), Operation: gateway.OperationRead})

	if len(logger.msgs) != 1 {
		t.Errorf("logged %d errors, want 1", len(logger.msgs))
	}
}
