package org

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"hrpay/internal/domain/sensitive"
)

type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
    id, company_id, department_id, emp_id, name, email, designation, date_of_joining, bank_name, created_at,
    aadhar_no_enc, uan_no_enc, pf_no_enc, esi_no_enc, bank_account_no_enc, bank_ifsc_enc, bank_branch_name_enc,
    basic_salary, basic_salary_enc, hra, hra_enc, tr_allowance, tr_allowance_enc,
    special_allowance, special_allowance_enc, vda, vda_enc`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var (
		e                                        Employee
		doj                                      sql.NullTime
		aadhar, uan, pf, esi, acct, ifsc, branch sql.NullString
		basic, hra, tr, special, vda             float64
		basicEnc, hraEnc, trEnc, specialEnc      sql.NullString
		vdaEnc                                   sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.DepartmentID, &e.EmpID, &e.Name, &e.Email, &e.Designation, &doj, &e.BankName, &e.CreatedAt,
		&aadhar, &uan, &pf, &esi, &acct, &ifsc, &branch,
		&basic, &basicEnc, &hra, &hraEnc, &tr, &trEnc,
		&special, &specialEnc, &vda, &vdaEnc,
	)
	if err != nil {
		return Employee{}, err
	}
	if doj.Valid {
		t := doj.Time
		e.DateOfJoining = &t
	}
	e.Aadhar = sensitive.TextFromColumns("", aadhar)
	e.UAN = sensitive.TextFromColumns("", uan)
	e.PFNo = sensitive.TextFromColumns("", pf)
	e.ESINo = sensitive.TextFromColumns("", esi)
	e.BankAccountNo = sensitive.TextFromColumns("", acct)
	e.BankIFSC = sensitive.TextFromColumns("", ifsc)
	e.BankBranchName = sensitive.TextFromColumns("", branch)
	e.Defaults = SalaryDefaults{
		BasicSalary:      sensitive.ValueFromColumns(basic, basicEnc),
		HRA:              sensitive.ValueFromColumns(hra, hraEnc),
		TrAllowance:      sensitive.ValueFromColumns(tr, trEnc),
		SpecialAllowance: sensitive.ValueFromColumns(special, specialEnc),
		VDA:              sensitive.ValueFromColumns(vda, vdaEnc),
	}
	return e, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (Company, error) {
	var c Company
	err := s.DB.QueryRowContext(ctx, "SELECT id, name, address FROM companies WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return c, errors.Wrap(err, "get company")
}

func (s *Store) GetDepartment(ctx context.Context, id string) (Department, error) {
	var d Department
	err := s.DB.QueryRowContext(ctx, "SELECT id, company_id, name FROM departments WHERE id = $1", id).
		Scan(&d.ID, &d.CompanyID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Department{}, ErrDepartmentNotFound
	}
	return d, errors.Wrap(err, "get department")
}

func (s *Store) GetEmployee(ctx context.Context, id string) (Employee, error) {
	e, err := scanEmployee(s.DB.QueryRowContext(ctx, "SELECT"+employeeColumns+" FROM employees WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, errors.Wrap(err, "get employee")
}

// ListEmployees returns one page of a department's employees, newest first,
// plus the department's total headcount. A non-positive limit returns all.
func (s *Store) ListEmployees(ctx context.Context, companyID, departmentID string, limit, offset int) ([]Employee, int, error) {
	var total int
	if err := s.DB.QueryRowContext(ctx, `
    SELECT COUNT(1) FROM employees WHERE company_id = $1 AND department_id = $2
  `, companyID, departmentID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count employees")
	}

	query := "SELECT" + employeeColumns + `
    FROM employees
    WHERE company_id = $1 AND department_id = $2
    ORDER BY created_at DESC, id`
	args := []any{companyID, departmentID}
	if limit > 0 {
		query += " LIMIT $3 OFFSET $4"
		args = append(args, limit, offset)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list employees")
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan employee")
		}
		out = append(out, e)
	}
	return out, total, errors.Wrap(rows.Err(), "list employees")
}
