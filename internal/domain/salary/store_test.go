package salary

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn), mock
}

// rowOf converts recordArgs into driver values the way a database returns
// them.
func rowOf(r StoredRecord) []driver.Value {
	args := recordArgs(r)
	out := make([]driver.Value, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case sql.NullString:
			if v.Valid {
				out[i] = v.String
			}
		case int:
			out[i] = int64(v)
		default:
			out[i] = v
		}
	}
	return out
}

func sealedRecord(t *testing.T) StoredRecord {
	t.Helper()
	c := testCipher(t)
	in := scenarioInput(3, 2025)
	values, encrypted, err := seal(c, in.Components, Reconcile(in.Components, StoredTotals{}))
	require.NoError(t, err)
	return StoredRecord{
		ID:               "rec-1",
		Key:              PeriodKey{Owner: acme, PayMonth: 3, PayYear: 2025},
		SalarySlipNumber: "SL-0042",
		Attendance:       in.Attendance,
		Values:           values,
		Notes:            sealText(t, c, in.Notes),
		IsEncrypted:      encrypted,
		CreatedAt:        clock,
		UpdatedAt:        clock,
	}
}

func TestStoreGetScansEveryColumn(t *testing.T) {
	s, mock := newMockStore(t)
	want := sealedRecord(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectRecord)).
		WithArgs("rec-1", "c1", "d1", "e1").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(rowOf(want)...))

	got, err := s.Get(context.Background(), acme, "rec-1")
	require.NoError(t, err)
	require.Equal(t, want.Key, got.Key)
	require.Equal(t, want.Attendance, got.Attendance)
	require.True(t, got.Values.NetPay.IsEncrypted())
	require.Equal(t, want.Values.NetPay.Token(), got.Values.NetPay.Token())
	require.True(t, got.Notes.IsEncrypted())
	require.True(t, got.Snapshot.IsZero())

	rec := open(testCipher(t), got)
	require.Equal(t, 23100.0, rec.NetPay)
	require.Equal(t, "March payroll", rec.Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectRecord)).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := s.Get(context.Background(), acme, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreInsertMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO salary_records").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "salary_records_employee_period_key"})

	err := s.Insert(context.Background(), sealedRecord(t))
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateLeavesCreatedAtAlone(t *testing.T) {
	s, mock := newMockStore(t)
	r := sealedRecord(t)

	args := []driver.Value{"rec-1", "c1", "d1", "e1"}
	for i := 0; i < len(recordColumns)-len(keyColumns)+1; i++ {
		args = append(args, sqlmock.AnyArg())
	}
	mock.ExpectExec(`UPDATE salary_records SET pay_month = \$5, pay_year = \$6, .*updated_at = \$\d+ WHERE id = \$1`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.Update(context.Background(), r)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateReportsMissingAndConflict(t *testing.T) {
	s, mock := newMockStore(t)
	r := sealedRecord(t)

	mock.ExpectExec("UPDATE salary_records").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err := s.Update(context.Background(), r)
	require.NoError(t, err)
	require.False(t, ok)

	mock.ExpectExec("UPDATE salary_records").WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = s.Update(context.Background(), r)
	require.ErrorIs(t, err, ErrConflict)
}

func TestStorePeriodTakenExcludesOwnRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM salary_records")).
		WithArgs("e1", 3, 2025, "rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	taken, err := s.PeriodTaken(context.Background(), "e1", 3, 2025, "rec-1")
	require.NoError(t, err)
	require.False(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListPages(t *testing.T) {
	s, mock := newMockStore(t)
	r := sealedRecord(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM salary_records")).
		WithArgs("c1", "d1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(16))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY pay_year DESC, pay_month DESC, created_at DESC")).
		WithArgs("c1", "d1", "e1", PageSize, PageSize).
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(rowOf(r)...))

	items, total, err := s.List(context.Background(), acme, PageSize, PageSize)
	require.NoError(t, err)
	require.Equal(t, 16, total)
	require.Len(t, items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDeleteScopedByOwner(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM salary_records").
		WithArgs("rec-1", "c1", "d1", "e1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Delete(context.Background(), acme, "rec-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
