package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"hrpay/internal/requestctx"
)

func TestRecordTakesActorFromContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := requestctx.WithActor(context.Background(), "admin-1")
	ctx = requestctx.WithRequestID(ctx, "req-9")
	ctx = requestctx.WithClientIP(ctx, "192.0.2.4")

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs("admin-1", "salary.create", "salary_record", "rec-1", "req-9", "192.0.2.4").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, New(db).Record(ctx, "salary.create", "salary_record", "rec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildBaseQueryNumbersPlaceholders(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: "salary.update", ActorID: "u1"})
	if want := "SELECT COUNT(1) FROM audit_events WHERE 1=1 AND action = $1 AND actor_id = $2"; query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
	if len(args) != 2 || args[0] != "salary.update" || args[1] != "u1" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestListPaginates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events WHERE 1=1 AND entity_type = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")).
		WithArgs("salary_record", 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}).
			AddRow(int64(7), "admin-1", "salary.delete", "salary_record", "rec-3", "req-1", "192.0.2.4", created))

	events, err := New(db).List(context.Background(), Filter{EntityType: "salary_record"}, 20, 40)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "salary.delete", events[0].Action)
	require.Equal(t, created, events[0].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
