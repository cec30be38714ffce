package salary

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"hrpay/internal/domain/sensitive"
	"hrpay/internal/platform/db"
)

type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

var keyColumns = []string{
	"id", "company_id", "department_id", "employee_id", "pay_month", "pay_year",
}

var (
	recordColumns = buildRecordColumns()
	selectRecord  = "SELECT " + strings.Join(recordColumns, ", ") + " FROM salary_records"
)

func buildRecordColumns() []string {
	cols := append([]string{}, keyColumns...)
	cols = append(cols, "salary_slip_number", "total_working_days", "paid_days", "lop_days", "leaves_taken")
	for _, f := range sealedFields {
		cols = append(cols, f.column, f.column+"_enc")
	}
	return append(cols, "notes", "notes_enc", "snapshot", "snapshot_enc", "is_encrypted", "created_at", "updated_at")
}

// recordArgs returns r's column values in recordColumns order.
func recordArgs(r StoredRecord) []any {
	args := []any{
		r.ID, r.Key.CompanyID, r.Key.DepartmentID, r.Key.EmployeeID, r.Key.PayMonth, r.Key.PayYear,
		r.SalarySlipNumber, r.Attendance.TotalWorkingDays, r.Attendance.PaidDays, r.Attendance.LOPDays, r.Attendance.LeavesTaken,
	}
	for _, f := range sealedFields {
		v := f.get(&r.Values)
		args = append(args, v.Mirror(), v.Token())
	}
	return append(args,
		r.Notes.Mirror(), r.Notes.Token(),
		r.Snapshot.Mirror(), r.Snapshot.Token(),
		r.IsEncrypted, r.CreatedAt, r.UpdatedAt,
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (StoredRecord, error) {
	var (
		r                     StoredRecord
		mirrors               = make([]float64, len(sealedFields))
		tokens                = make([]sql.NullString, len(sealedFields))
		notes, snapshot       string
		notesEnc, snapshotEnc sql.NullString
	)
	dest := []any{
		&r.ID, &r.Key.CompanyID, &r.Key.DepartmentID, &r.Key.EmployeeID, &r.Key.PayMonth, &r.Key.PayYear,
		&r.SalarySlipNumber, &r.Attendance.TotalWorkingDays, &r.Attendance.PaidDays, &r.Attendance.LOPDays, &r.Attendance.LeavesTaken,
	}
	for i := range sealedFields {
		dest = append(dest, &mirrors[i], &tokens[i])
	}
	dest = append(dest, &notes, &notesEnc, &snapshot, &snapshotEnc, &r.IsEncrypted, &r.CreatedAt, &r.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return StoredRecord{}, err
	}
	for i, f := range sealedFields {
		*f.get(&r.Values) = sensitive.ValueFromColumns(mirrors[i], tokens[i])
	}
	r.Notes = sensitive.TextFromColumns(notes, notesEnc)
	r.Snapshot = sensitive.TextFromColumns(snapshot, snapshotEnc)
	return r, nil
}

func placeholders(from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(out, ", ")
}

// Insert persists r. The (employee, month, year) unique constraint is the
// final arbiter for concurrent creates and surfaces as KindDuplicate.
func (s *Store) Insert(ctx context.Context, r StoredRecord) error {
	query := "INSERT INTO salary_records (" + strings.Join(recordColumns, ", ") + ") VALUES (" +
		placeholders(1, len(recordColumns)) + ")"
	_, err := s.DB.ExecContext(ctx, query, recordArgs(r)...)
	if _, dup := db.UniqueViolation(err); dup {
		return &Error{Kind: KindDuplicate, Op: "insert salary record", Msg: "salary record already exists for this period", Err: err}
	}
	return errors.Wrap(err, "insert salary record")
}

// Update rewrites every mutable column of r, scoped by its ownership chain.
// It reports false when no row matched.
func (s *Store) Update(ctx context.Context, r StoredRecord) (bool, error) {
	args := recordArgs(r)
	all := []any{r.ID, r.Key.CompanyID, r.Key.DepartmentID, r.Key.EmployeeID}
	var sets []string
	for i := len(keyColumns) - 2; i < len(recordColumns); i++ {
		if recordColumns[i] == "created_at" {
			continue
		}
		all = append(all, args[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", recordColumns[i], len(all)))
	}
	query := "UPDATE salary_records SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 AND company_id = $2 AND department_id = $3 AND employee_id = $4"

	res, err := s.DB.ExecContext(ctx, query, all...)
	if _, dup := db.UniqueViolation(err); dup {
		return false, &Error{Kind: KindConflict, Op: "update salary record", Msg: "another salary record already exists for this period", Err: err}
	}
	if err != nil {
		return false, errors.Wrap(err, "update salary record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "update salary record")
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, owner Owner, id string) (StoredRecord, error) {
	r, err := scanRecord(s.DB.QueryRowContext(ctx, selectRecord+`
    WHERE id = $1 AND company_id = $2 AND department_id = $3 AND employee_id = $4`,
		id, owner.CompanyID, owner.DepartmentID, owner.EmployeeID))
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, notFound("get salary record", "salary record not found")
	}
	return r, errors.Wrap(err, "get salary record")
}

// PeriodTaken reports whether the employee already has a record for the
// period, ignoring excludeID.
func (s *Store) PeriodTaken(ctx context.Context, employeeID string, month, year int, excludeID string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
    SELECT COUNT(1) FROM salary_records
    WHERE employee_id = $1 AND pay_month = $2 AND pay_year = $3 AND id <> $4
  `, employeeID, month, year, excludeID).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "check salary period")
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, owner Owner, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
    DELETE FROM salary_records
    WHERE id = $1 AND company_id = $2 AND department_id = $3 AND employee_id = $4
  `, id, owner.CompanyID, owner.DepartmentID, owner.EmployeeID)
	if err != nil {
		return false, errors.Wrap(err, "delete salary record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "delete salary record")
	}
	return n > 0, nil
}

// List returns one page of the employee's records, newest period first.
func (s *Store) List(ctx context.Context, owner Owner, limit, offset int) ([]StoredRecord, int, error) {
	var total int
	if err := s.DB.QueryRowContext(ctx, `
    SELECT COUNT(1) FROM salary_records
    WHERE company_id = $1 AND department_id = $2 AND employee_id = $3
  `, owner.CompanyID, owner.DepartmentID, owner.EmployeeID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count salary records")
	}

	rows, err := s.DB.QueryContext(ctx, selectRecord+`
    WHERE company_id = $1 AND department_id = $2 AND employee_id = $3
    ORDER BY pay_year DESC, pay_month DESC, created_at DESC
    LIMIT $4 OFFSET $5`,
		owner.CompanyID, owner.DepartmentID, owner.EmployeeID, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list salary records")
	}
	out, err := collect(rows)
	return out, total, err
}

// ListPeriod returns every record of a department for one pay period.
func (s *Store) ListPeriod(ctx context.Context, companyID, departmentID string, month, year int) ([]StoredRecord, error) {
	rows, err := s.DB.QueryContext(ctx, selectRecord+`
    WHERE company_id = $1 AND department_id = $2 AND pay_month = $3 AND pay_year = $4
    ORDER BY created_at, id`,
		companyID, departmentID, month, year)
	if err != nil {
		return nil, errors.Wrap(err, "list salary period")
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]StoredRecord, error) {
	defer rows.Close()
	var out []StoredRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan salary record")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "read salary records")
}
