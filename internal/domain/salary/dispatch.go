package salary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/org"
	"hrpay/internal/platform/email"
)

const pdfContentType = "application/pdf"

var errNoMailer = errors.New("mailer not configured")

func monthName(m int) string {
	return time.Month(m).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (s *Service) slipData(company org.Company, dept org.Department, e org.Employee, stored StoredRecord) SlipData {
	rec := open(s.cipher, stored)
	snap := Snapshot{}
	if rec.Snapshot != nil {
		snap = *rec.Snapshot
	}
	doj := ""
	if e.DateOfJoining != nil {
		doj = e.DateOfJoining.Format("02 Jan 2006")
	}
	return SlipData{
		Company:    company,
		Department: dept,
		Employee: SlipEmployee{
			Name:          firstNonEmpty(e.Name, snap.EmployeeName),
			EmpID:         firstNonEmpty(e.EmpID, snap.EmpID),
			Email:         strings.TrimSpace(e.Email),
			Designation:   firstNonEmpty(e.Designation, snap.Designation),
			DateOfJoining: firstNonEmpty(doj, snap.DateOfJoining),
			BankName:      firstNonEmpty(e.BankName, snap.BankName),
			BankAccountNo: firstNonEmpty(e.BankAccountNo.OrEmpty(s.cipher), snap.BankAccountNo),
			PFNo:          e.PFNo.OrEmpty(s.cipher),
			ESINo:         e.ESINo.OrEmpty(s.cipher),
			UAN:           e.UAN.OrEmpty(s.cipher),
		},
		Record:    rec,
		MonthName: monthName(rec.PayMonth),
	}
}

// SlipData resolves everything a salary slip prints for one record.
func (s *Service) SlipData(ctx context.Context, owner Owner, id string) (SlipData, error) {
	const op = "salary slip"
	company, dept, employee, err := s.chain(ctx, op, owner)
	if err != nil {
		return SlipData{}, err
	}
	stored, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return SlipData{}, passthrough(op, err)
	}
	return s.slipData(company, dept, employee, stored), nil
}

// RenderSlip returns the slip document and its file name.
func (s *Service) RenderSlip(ctx context.Context, owner Owner, id string) ([]byte, string, error) {
	data, err := s.SlipData(ctx, owner, id)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.renderer.Slip(data)
	if err != nil {
		return nil, "", internal("render salary slip", err)
	}
	return doc, data.Filename(), nil
}

// SendSlip mails the slip to "to", or to the employee when "to" is blank.
// It returns the address used.
func (s *Service) SendSlip(ctx context.Context, owner Owner, id, to string) (string, error) {
	const op = "send salary slip"
	data, err := s.SlipData(ctx, owner, id)
	if err != nil {
		return "", err
	}
	return s.sendSlip(ctx, op, data, to)
}

func (s *Service) sendSlip(ctx context.Context, op string, data SlipData, to string) (recipient string, err error) {
	defer func() { s.metrics.MailSent("slip", err) }()

	recipient = firstNonEmpty(to, data.Employee.Email)
	if recipient == "" {
		return "", validationError(op, "email", "no recipient email: provide one or set the employee email")
	}
	doc, err := s.renderer.Slip(data)
	if err != nil {
		return "", internal(op, err)
	}
	msg := email.Message{
		To:      recipient,
		Subject: fmt.Sprintf("Payslip for %s %d", data.MonthName, data.Record.PayYear),
		Body: fmt.Sprintf("Dear %s,\n\nPlease find attached your payslip for %s %d.\n\nRegards,\n%s",
			firstNonEmpty(data.Employee.Name, "Employee"), data.MonthName, data.Record.PayYear, data.Company.Name),
		Attachments: []email.Attachment{{Filename: data.Filename(), ContentType: pdfContentType, Data: doc}},
	}
	if err := s.mail(ctx, msg); err != nil {
		return "", internal(op, err)
	}
	s.log.WithFields(logrus.Fields{"id": data.Record.ID, "size": humanize.Bytes(uint64(len(doc)))}).Infof("salary slip mailed")
	return recipient, nil
}

func (s *Service) mail(ctx context.Context, msg email.Message) error {
	if s.mailer == nil {
		return errNoMailer
	}
	return s.mailer.Send(ctx, msg)
}

// AccountsSummary builds the department payroll for one period. Periods with
// no records are NotFound.
func (s *Service) AccountsSummary(ctx context.Context, companyID, departmentID string, month, year int) (Summary, error) {
	const op = "accounts summary"
	if err := validatePeriod(op, month, year); err != nil {
		return Summary{}, err
	}
	company, dept, err := s.dir.Unit(ctx, companyID, departmentID)
	if err != nil {
		return Summary{}, fromDirectory(op, err)
	}
	stored, err := s.store.ListPeriod(ctx, company.ID, dept.ID, month, year)
	if err != nil {
		return Summary{}, internal(op, err)
	}
	if len(stored) == 0 {
		return Summary{}, notFound(op, fmt.Sprintf("no salary records for %s %d", monthName(month), year))
	}
	employees, err := s.dir.DepartmentEmployees(ctx, company.ID, dept.ID)
	if err != nil {
		return Summary{}, fromDirectory(op, err)
	}
	byID := make(map[string]org.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	summary := Summary{
		Company:     company,
		Department:  dept,
		Month:       month,
		Year:        year,
		MonthName:   monthName(month),
		Rows:        make([]SummaryRow, 0, len(stored)),
		GeneratedAt: s.now(),
	}
	var gross, deductions, net []float64
	for _, r := range stored {
		rec := open(s.cipher, r)
		e := byID[r.Key.EmployeeID]
		name, empID := e.Name, e.EmpID
		if rec.Snapshot != nil {
			name = firstNonEmpty(name, rec.Snapshot.EmployeeName)
			empID = firstNonEmpty(empID, rec.Snapshot.EmpID)
		}
		summary.Rows = append(summary.Rows, SummaryRow{
			EmployeeID:       r.Key.EmployeeID,
			EmployeeName:     name,
			EmpID:            empID,
			TotalWorkingDays: rec.TotalWorkingDays,
			PaidDays:         rec.PaidDays,
			LOPDays:          rec.LOPDays,
			Gross:            rec.TotalEarnings,
			TotalDeductions:  rec.TotalDeductions,
			NetPay:           rec.NetPay,
		})
		summary.Totals.TotalWorkingDays += rec.TotalWorkingDays
		summary.Totals.PaidDays += rec.PaidDays
		summary.Totals.LOPDays += rec.LOPDays
		gross = append(gross, rec.TotalEarnings)
		deductions = append(deductions, rec.TotalDeductions)
		net = append(net, rec.NetPay)
	}
	summary.Totals.Gross = sumRound2(gross...)
	summary.Totals.TotalDeductions = sumRound2(deductions...)
	summary.Totals.NetPay = sumRound2(net...)
	return summary, nil
}

// RenderAccountsSummary returns the summary document and its file name.
func (s *Service) RenderAccountsSummary(ctx context.Context, companyID, departmentID string, month, year int) ([]byte, string, error) {
	summary, err := s.AccountsSummary(ctx, companyID, departmentID, month, year)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.renderer.Summary(summary)
	if err != nil {
		return nil, "", internal("render accounts summary", err)
	}
	return doc, summary.Filename(), nil
}

// SendAccountsSummary mails the summary to "to", or to the configured
// accounts address. It returns the address used.
func (s *Service) SendAccountsSummary(ctx context.Context, companyID, departmentID string, month, year int, to string) (recipient string, err error) {
	const op = "send accounts summary"
	defer func() { s.metrics.MailSent("accounts_summary", err) }()

	recipient = firstNonEmpty(to, s.accountsEmail)
	if recipient == "" {
		return "", validationError(op, "email", "no recipient email: provide one or configure ACCOUNTS_EMAIL")
	}
	summary, err := s.AccountsSummary(ctx, companyID, departmentID, month, year)
	if err != nil {
		return "", err
	}
	doc, err := s.renderer.Summary(summary)
	if err != nil {
		return "", internal(op, err)
	}
	msg := email.Message{
		To:      recipient,
		Subject: summary.Subject(),
		Body: fmt.Sprintf("Please find attached the accounts summary for %s %d for department %s at %s.",
			summary.MonthName, summary.Year, summary.Department.Name, summary.Company.Name),
		Attachments: []email.Attachment{{Filename: summary.Filename(), ContentType: pdfContentType, Data: doc}},
	}
	if err := s.mail(ctx, msg); err != nil {
		return "", internal(op, err)
	}
	s.log.WithFields(logrus.Fields{"department": departmentID, "rows": len(summary.Rows), "size": humanize.Bytes(uint64(len(doc)))}).
		Infof("accounts summary mailed for %s %d", summary.MonthName, year)
	return recipient, nil
}

type DispatchFailure struct {
	EmployeeID string `json:"employeeId"`
	RecordID   string `json:"recordId"`
	Error      string `json:"error"`
}

type DispatchReport struct {
	Sent    int               `json:"sent"`
	Skipped int               `json:"skipped"`
	Failed  []DispatchFailure `json:"failed"`
}

// SendDepartmentSlips mails every slip of a department for one period to the
// employees' own addresses, paced by the mail limiter. Employees without an
// email are skipped; individual failures do not stop the run.
func (s *Service) SendDepartmentSlips(ctx context.Context, companyID, departmentID string, month, year int) (DispatchReport, error) {
	const op = "send department slips"
	if err := validatePeriod(op, month, year); err != nil {
		return DispatchReport{}, err
	}
	company, dept, err := s.dir.Unit(ctx, companyID, departmentID)
	if err != nil {
		return DispatchReport{}, fromDirectory(op, err)
	}
	stored, err := s.store.ListPeriod(ctx, company.ID, dept.ID, month, year)
	if err != nil {
		return DispatchReport{}, internal(op, err)
	}
	if len(stored) == 0 {
		return DispatchReport{}, notFound(op, fmt.Sprintf("no salary records for %s %d", monthName(month), year))
	}
	employees, err := s.dir.DepartmentEmployees(ctx, company.ID, dept.ID)
	if err != nil {
		return DispatchReport{}, fromDirectory(op, err)
	}
	byID := make(map[string]org.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	report := DispatchReport{Failed: []DispatchFailure{}}
	for _, r := range stored {
		e, ok := byID[r.Key.EmployeeID]
		if !ok || strings.TrimSpace(e.Email) == "" {
			report.Skipped++
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return report, internal(op, err)
			}
		}
		if _, err := s.sendSlip(ctx, op, s.slipData(company, dept, e, r), ""); err != nil {
			report.Failed = append(report.Failed, DispatchFailure{EmployeeID: e.ID, RecordID: r.ID, Error: err.Error()})
			continue
		}
		report.Sent++
	}
	s.log.WithFields(logrus.Fields{"department": dept.ID, "sent": report.Sent, "skipped": report.Skipped, "failed": len(report.Failed)}).
		Infof("department slips dispatched for %s %d", monthName(month), year)
	return report, nil
}
