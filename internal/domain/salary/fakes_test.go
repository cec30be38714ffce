package salary

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hrpay/internal/domain/org"
	"hrpay/internal/domain/sensitive"
	"hrpay/internal/platform/crypto"
	"hrpay/internal/platform/email"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]StoredRecord
	// racePrecheck makes PeriodTaken miss existing rows, so only the unique
	// constraint in Insert can catch a duplicate.
	racePrecheck bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]StoredRecord{}}
}

func (m *memoryStore) clash(r StoredRecord) bool {
	for id, other := range m.records {
		if id != r.ID && other.Key.EmployeeID == r.Key.EmployeeID &&
			other.Key.PayMonth == r.Key.PayMonth && other.Key.PayYear == r.Key.PayYear {
			return true
		}
	}
	return false
}

func (m *memoryStore) Insert(_ context.Context, r StoredRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clash(r) {
		return &Error{Kind: KindDuplicate, Op: "insert salary record", Msg: "salary record already exists for this period"}
	}
	m.records[r.ID] = r
	return nil
}

func (m *memoryStore) Update(_ context.Context, r StoredRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[r.ID]
	if !ok || existing.Key.Owner != r.Key.Owner {
		return false, nil
	}
	if m.clash(r) {
		return false, &Error{Kind: KindConflict, Op: "update salary record"}
	}
	m.records[r.ID] = r
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, owner Owner, id string) (StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Key.Owner != owner {
		return StoredRecord{}, notFound("get salary record", "salary record not found")
	}
	return r, nil
}

func (m *memoryStore) PeriodTaken(_ context.Context, employeeID string, month, year int, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.racePrecheck {
		return false, nil
	}
	return m.clash(StoredRecord{ID: excludeID, Key: PeriodKey{Owner: Owner{EmployeeID: employeeID}, PayMonth: month, PayYear: year}}), nil
}

func (m *memoryStore) Delete(_ context.Context, owner Owner, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Key.Owner != owner {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

func (m *memoryStore) sorted(match func(StoredRecord) bool) []StoredRecord {
	var out []StoredRecord
	for _, r := range m.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Key.PayYear != b.Key.PayYear {
			return a.Key.PayYear > b.Key.PayYear
		}
		if a.Key.PayMonth != b.Key.PayMonth {
			return a.Key.PayMonth > b.Key.PayMonth
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

func (m *memoryStore) List(_ context.Context, owner Owner, limit, offset int) ([]StoredRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(r StoredRecord) bool { return r.Key.Owner == owner })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memoryStore) ListPeriod(_ context.Context, companyID, departmentID string, month, year int) ([]StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r StoredRecord) bool {
		return r.Key.CompanyID == companyID && r.Key.DepartmentID == departmentID &&
			r.Key.PayMonth == month && r.Key.PayYear == year
	}), nil
}

// orgStore backs a real org.Service so ownership checks run the production
// code path.
type orgStore struct {
	companies   map[string]org.Company
	departments map[string]org.Department
	employees   map[string]org.Employee
}

func (o *orgStore) GetCompany(_ context.Context, id string) (org.Company, error) {
	c, ok := o.companies[id]
	if !ok {
		return org.Company{}, org.ErrCompanyNotFound
	}
	return c, nil
}

func (o *orgStore) GetDepartment(_ context.Context, id string) (org.Department, error) {
	d, ok := o.departments[id]
	if !ok {
		return org.Department{}, org.ErrDepartmentNotFound
	}
	return d, nil
}

func (o *orgStore) GetEmployee(_ context.Context, id string) (org.Employee, error) {
	e, ok := o.employees[id]
	if !ok {
		return org.Employee{}, org.ErrEmployeeNotFound
	}
	return e, nil
}

func (o *orgStore) ListEmployees(_ context.Context, companyID, departmentID string, _, _ int) ([]org.Employee, int, error) {
	var out []org.Employee
	for _, e := range o.employees {
		if e.CompanyID == companyID && e.DepartmentID == departmentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type sentMail struct {
	mu   sync.Mutex
	msgs []email.Message
	err  error
}

func (s *sentMail) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

type auditLog struct {
	actions []string
}

func (a *auditLog) Record(_ context.Context, action, _, entityID string) error {
	a.actions = append(a.actions, action+":"+entityID)
	return nil
}

type stubRenderer struct{}

func (stubRenderer) Slip(d SlipData) ([]byte, error)   { return []byte("%PDF slip " + d.Employee.EmpID), nil }
func (stubRenderer) Summary(s Summary) ([]byte, error) { return []byte("%PDF summary " + s.MonthName), nil }

type harness struct {
	svc    *Service
	store  *memoryStore
	org    *orgStore
	cipher *crypto.Service
	mail   *sentMail
	audit  *auditLog
}

var (
	acme  = Owner{CompanyID: "c1", DepartmentID: "d1", EmployeeID: "e1"}
	clock = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
)

func testCipher(t *testing.T) *crypto.Service {
	t.Helper()
	c, err := crypto.New(strings.Repeat("3c", 32))
	require.NoError(t, err)
	return c
}

func sealText(t *testing.T, c sensitive.Cipher, s string) sensitive.Text {
	t.Helper()
	out, err := sensitive.SealText(c, s)
	require.NoError(t, err)
	return out
}

func newHarness(t *testing.T, cipher *crypto.Service) *harness {
	t.Helper()
	if cipher == nil {
		cipher = testCipher(t)
	}
	doj := time.Date(2021, 6, 14, 0, 0, 0, 0, time.UTC)
	people := &orgStore{
		companies: map[string]org.Company{
			"c1": {ID: "c1", Name: "Rajavruksha", Address: "Mysuru"},
		},
		departments: map[string]org.Department{
			"d1": {ID: "d1", CompanyID: "c1", Name: "Field Ops"},
			"d2": {ID: "d2", CompanyID: "c1", Name: "Finance"},
		},
		employees: map[string]org.Employee{
			"e1": {
				ID: "e1", CompanyID: "c1", DepartmentID: "d1", EmpID: "EMP-1", Name: "Asha Rao",
				Email: "asha@example.com", Designation: "Supervisor", BankName: "SBI", DateOfJoining: &doj,
				BankAccountNo: sealText(t, cipher, "50100012345678"),
				PFNo:          sealText(t, cipher, "KA/BNG/0001"),
			},
			"e2": {ID: "e2", CompanyID: "c1", DepartmentID: "d1", EmpID: "EMP-2", Name: "Ravi K"},
			"e3": {ID: "e3", CompanyID: "c1", DepartmentID: "d2", EmpID: "EMP-3", Name: "Meera S"},
		},
	}
	h := &harness{
		store:  newMemoryStore(),
		org:    people,
		cipher: cipher,
		mail:   &sentMail{},
		audit:  &auditLog{},
	}
	h.svc = NewService(Deps{
		Store:         h.store,
		Directory:     org.NewService(people, cipher, nil),
		Cipher:        cipher,
		Renderer:      stubRenderer{},
		Mailer:        h.mail,
		Audit:         h.audit,
		AccountsEmail: "accounts@example.com",
		Now:           func() time.Time { return clock },
	})
	return h
}

func scenarioInput(month, year int) Input {
	return Input{
		PayMonth:         month,
		PayYear:          year,
		SalarySlipNumber: "  SL-0042 ",
		Components: Components{
			Earnings:   Earnings{BasicSalary: 20000, HRA: 4000, TrAllowance: 1600},
			Deductions: Deductions{EPF: 1800, ProfessionalTax: 200, UniformDeduction: 500},
		},
		Attendance: Attendance{TotalWorkingDays: 30, PaidDays: 29, LOPDays: 1},
		Notes:      "March payroll",
	}
}
