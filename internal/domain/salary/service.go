package salary

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"hrpay/internal/domain/org"
	"hrpay/internal/domain/sensitive"
	"hrpay/internal/platform/email"
	"hrpay/internal/platform/ids"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
)

// Directory is the identity lookup the salary service depends on.
type Directory interface {
	Chain(ctx context.Context, companyID, departmentID, employeeID string) (org.Company, org.Department, org.Employee, error)
	Unit(ctx context.Context, companyID, departmentID string) (org.Company, org.Department, error)
	DepartmentEmployees(ctx context.Context, companyID, departmentID string) ([]org.Employee, error)
}

type Auditor interface {
	Record(ctx context.Context, action, entityType, entityID string) error
}

const entityType = "salary_record"

type Deps struct {
	Store     StoreAPI
	Directory Directory
	Cipher    sensitive.Cipher
	Renderer  Renderer
	Mailer    email.Mailer
	Audit     Auditor
	Metrics   *metrics.Collector
	Log       logger.Logger
	// AccountsEmail receives accounts summaries when no recipient is given.
	AccountsEmail string
	// MailLimiter paces bulk slip dispatch. nil means unpaced.
	MailLimiter *rate.Limiter
	Now         func() time.Time
}

type Service struct {
	store         StoreAPI
	dir           Directory
	cipher        sensitive.Cipher
	renderer      Renderer
	mailer        email.Mailer
	audit         Auditor
	metrics       *metrics.Collector
	log           logger.Logger
	accountsEmail string
	limiter       *rate.Limiter
	now           func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:         d.Store,
		dir:           d.Directory,
		cipher:        d.Cipher,
		renderer:      d.Renderer,
		mailer:        d.Mailer,
		audit:         d.Audit,
		metrics:       d.Metrics,
		log:           d.Log,
		accountsEmail: strings.TrimSpace(d.AccountsEmail),
		limiter:       d.MailLimiter,
		now:           d.Now,
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.renderer == nil {
		s.renderer = PDFRenderer{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func validatePeriod(op string, month, year int) error {
	if month < 1 || month > 12 {
		return validationError(op, "payMonth", "payMonth must be between 1 and 12")
	}
	if year <= 0 {
		return validationError(op, "payYear", "payYear must be a positive integer")
	}
	return nil
}

// chain verifies the ownership chain and maps lookup failures onto salary
// kinds.
func (s *Service) chain(ctx context.Context, op string, owner Owner) (org.Company, org.Department, org.Employee, error) {
	required := [][2]string{
		{"companyId", owner.CompanyID},
		{"departmentId", owner.DepartmentID},
		{"employeeId", owner.EmployeeID},
	}
	for _, f := range required {
		if strings.TrimSpace(f[1]) == "" {
			return org.Company{}, org.Department{}, org.Employee{}, validationError(op, f[0], "%s is required", f[0])
		}
	}
	company, dept, employee, err := s.dir.Chain(ctx, owner.CompanyID, owner.DepartmentID, owner.EmployeeID)
	if err != nil {
		return org.Company{}, org.Department{}, org.Employee{}, fromDirectory(op, err)
	}
	return company, dept, employee, nil
}

func (s *Service) snapshotOf(e org.Employee) Snapshot {
	snap := Snapshot{
		EmployeeName:  e.Name,
		EmpID:         e.EmpID,
		Designation:   e.Designation,
		BankName:      e.BankName,
		BankAccountNo: e.BankAccountNo.OrEmpty(s.cipher),
	}
	if e.DateOfJoining != nil {
		snap.DateOfJoining = e.DateOfJoining.Format("2006-01-02")
	}
	return snap
}

// passthrough keeps typed salary errors and wraps everything else as
// internal.
func passthrough(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return internal(op, err)
}

func (s *Service) record(ctx context.Context, action, id string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, entityType, id); err != nil {
		s.log.WithFields(logrus.Fields{"action": action, "id": id}).Warnf("audit record failed: %v", err)
	}
}

// Create stores a new record for the period. Aggregates are computed from the
// submitted components and every sensitive value is sealed before it is
// written.
func (s *Service) Create(ctx context.Context, owner Owner, in Input) (rec Record, err error) {
	const op = "create salary record"
	defer func() { s.metrics.SalaryOp("create", err) }()

	if err := validatePeriod(op, in.PayMonth, in.PayYear); err != nil {
		return Record{}, err
	}
	_, _, employee, err := s.chain(ctx, op, owner)
	if err != nil {
		return Record{}, err
	}
	taken, err := s.store.PeriodTaken(ctx, employee.ID, in.PayMonth, in.PayYear, "")
	if err != nil {
		return Record{}, internal(op, err)
	}
	if taken {
		return Record{}, &Error{Kind: KindDuplicate, Op: op, Msg: "salary record already exists for this period"}
	}

	comps := in.Components.Clean()
	totals := Reconcile(comps, StoredTotals{})
	sealed, encrypted, err := seal(s.cipher, comps, totals)
	if err != nil {
		return Record{}, internal(op, err)
	}
	notes, err := sensitive.SealText(s.cipher, in.Notes)
	if err != nil {
		return Record{}, internal(op, err)
	}
	snapshot, err := sealSnapshot(s.cipher, s.snapshotOf(employee))
	if err != nil {
		return Record{}, internal(op, err)
	}

	now := s.now()
	stored := StoredRecord{
		ID:               ids.New(),
		Key:              PeriodKey{Owner: owner, PayMonth: in.PayMonth, PayYear: in.PayYear},
		SalarySlipNumber: strings.TrimSpace(in.SalarySlipNumber),
		Attendance:       in.Attendance.Clean(),
		Values:           sealed,
		Notes:            notes,
		Snapshot:         snapshot,
		IsEncrypted:      encrypted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Insert(ctx, stored); err != nil {
		return Record{}, passthrough(op, err)
	}
	s.record(ctx, "salary.create", stored.ID)
	s.log.WithFields(logrus.Fields{"id": stored.ID, "employeeId": owner.EmployeeID, "encrypted": encrypted}).
		Infof("salary record created for %02d/%d", in.PayMonth, in.PayYear)
	return open(s.cipher, stored), nil
}

// Update merges the present fields of p over the prior values and always
// recomputes aggregates.
func (s *Service) Update(ctx context.Context, owner Owner, id string, p Patch) (rec Record, err error) {
	const op = "update salary record"
	defer func() { s.metrics.SalaryOp("update", err) }()

	if _, _, _, err := s.chain(ctx, op, owner); err != nil {
		return Record{}, err
	}
	existing, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return Record{}, passthrough(op, err)
	}
	prior := open(s.cipher, existing)

	month, year := existing.Key.PayMonth, existing.Key.PayYear
	if p.PayMonth != nil {
		month = *p.PayMonth
	}
	if p.PayYear != nil {
		year = *p.PayYear
	}
	if err := validatePeriod(op, month, year); err != nil {
		return Record{}, err
	}
	if month != existing.Key.PayMonth || year != existing.Key.PayYear {
		taken, err := s.store.PeriodTaken(ctx, owner.EmployeeID, month, year, id)
		if err != nil {
			return Record{}, internal(op, err)
		}
		if taken {
			return Record{}, &Error{Kind: KindConflict, Op: op, Msg: "another salary record already exists for this period"}
		}
	}

	comps := p.Components.Apply(prior.Components)
	totals := Reconcile(comps, StoredTotals{Advance: present(s.cipher, existing.Values.Advance)})
	sealed, encrypted, err := seal(s.cipher, comps, totals)
	if err != nil {
		return Record{}, internal(op, err)
	}
	notesPlain := prior.Notes
	if p.Notes != nil {
		notesPlain = *p.Notes
	}
	notes, err := sensitive.SealText(s.cipher, notesPlain)
	if err != nil {
		return Record{}, internal(op, err)
	}

	updated := existing
	updated.Key.PayMonth, updated.Key.PayYear = month, year
	if p.SalarySlipNumber != nil {
		updated.SalarySlipNumber = strings.TrimSpace(*p.SalarySlipNumber)
	}
	updated.Attendance = p.Attendance.Apply(existing.Attendance)
	updated.Values = sealed
	updated.Notes = notes
	updated.IsEncrypted = encrypted
	updated.UpdatedAt = s.now()

	ok, err := s.store.Update(ctx, updated)
	if err != nil {
		return Record{}, passthrough(op, err)
	}
	if !ok {
		return Record{}, notFound(op, "salary record not found")
	}
	s.record(ctx, "salary.update", id)
	return open(s.cipher, updated), nil
}

func (s *Service) Delete(ctx context.Context, owner Owner, id string) (err error) {
	const op = "delete salary record"
	defer func() { s.metrics.SalaryOp("delete", err) }()

	if _, _, _, err := s.chain(ctx, op, owner); err != nil {
		return err
	}
	ok, err := s.store.Delete(ctx, owner, id)
	if err != nil {
		return internal(op, err)
	}
	if !ok {
		return notFound(op, "salary record not found")
	}
	s.record(ctx, "salary.delete", id)
	return nil
}

func (s *Service) Get(ctx context.Context, owner Owner, id string) (Record, error) {
	const op = "get salary record"
	if _, _, _, err := s.chain(ctx, op, owner); err != nil {
		return Record{}, err
	}
	stored, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return Record{}, passthrough(op, err)
	}
	return open(s.cipher, stored), nil
}

// Project returns the reveal or masked view of one record.
func (s *Service) Project(ctx context.Context, owner Owner, id string, reveal bool) (Projection, error) {
	const op = "project salary record"
	if _, _, _, err := s.chain(ctx, op, owner); err != nil {
		return Projection{}, err
	}
	stored, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return Projection{}, passthrough(op, err)
	}
	if reveal {
		s.log.WithFields(logrus.Fields{"id": id, "employeeId": owner.EmployeeID}).Infof("salary record revealed")
	}
	return ProjectRecord(s.cipher, stored, reveal), nil
}

func (s *Service) page(ctx context.Context, op string, owner Owner, page int) ([]StoredRecord, Page, error) {
	if _, _, _, err := s.chain(ctx, op, owner); err != nil {
		return nil, Page{}, err
	}
	if page < 1 {
		page = 1
	}
	stored, total, err := s.store.List(ctx, owner, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, Page{}, internal(op, err)
	}
	return stored, Page{
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}

// List returns one fixed-size page of the employee's records, newest period
// first. A page past the end is empty, not an error.
func (s *Service) List(ctx context.Context, owner Owner, page int) (Page, error) {
	stored, out, err := s.page(ctx, "list salary records", owner, page)
	if err != nil {
		return Page{}, err
	}
	out.Items = make([]Record, 0, len(stored))
	for _, r := range stored {
		out.Items = append(out.Items, open(s.cipher, r))
	}
	return out, nil
}

// ListProjected is List with every record passed through ProjectRecord.
func (s *Service) ListProjected(ctx context.Context, owner Owner, page int, reveal bool) (ProjectionPage, error) {
	stored, meta, err := s.page(ctx, "list salary records", owner, page)
	if err != nil {
		return ProjectionPage{}, err
	}
	out := ProjectionPage{
		Items:      make([]Projection, 0, len(stored)),
		Page:       meta.Page,
		PageSize:   meta.PageSize,
		Total:      meta.Total,
		TotalPages: meta.TotalPages,
		Revealed:   reveal,
	}
	for _, r := range stored {
		out.Items = append(out.Items, ProjectRecord(s.cipher, r, reveal))
	}
	if reveal && len(stored) > 0 {
		s.log.WithFields(logrus.Fields{"employeeId": owner.EmployeeID, "count": len(stored)}).Infof("salary records revealed")
	}
	return out, nil
}

// SalaryDefaults returns the employee's stored default components.
// Undecryptable values read as zero.
func (s *Service) SalaryDefaults(ctx context.Context, owner Owner) (Defaults, error) {
	_, _, e, err := s.chain(ctx, "salary defaults", owner)
	if err != nil {
		return Defaults{}, err
	}
	d := e.Defaults
	return Defaults{
		BasicSalary:      d.BasicSalary.Or0(s.cipher),
		HRA:              d.HRA.Or0(s.cipher),
		TrAllowance:      d.TrAllowance.Or0(s.cipher),
		SpecialAllowance: d.SpecialAllowance.Or0(s.cipher),
		VDA:              d.VDA.Or0(s.cipher),
	}, nil
}
