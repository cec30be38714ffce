package salary

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hrpay/internal/domain/org"
)

// SlipEmployee is the employee identity printed on a slip. Live employee
// values win; the record snapshot fills the gaps.
type SlipEmployee struct {
	Name          string `json:"employeeName"`
	EmpID         string `json:"empId"`
	Email         string `json:"email"`
	Designation   string `json:"designation"`
	DateOfJoining string `json:"dateOfJoining"`
	BankName      string `json:"bankName"`
	BankAccountNo string `json:"bankAccountNo"`
	PFNo          string `json:"pfNo"`
	ESINo         string `json:"esiNo"`
	UAN           string `json:"uan"`
}

// SlipData is the fully resolved input of a salary slip.
type SlipData struct {
	Company    org.Company    `json:"company"`
	Department org.Department `json:"department"`
	Employee   SlipEmployee   `json:"employee"`
	Record     Record         `json:"record"`
	MonthName  string         `json:"monthName"`
}

// Filename is the attachment name used when the slip is downloaded or mailed.
func (d SlipData) Filename() string {
	return fmt.Sprintf("Payslip-%s-%s-%d.pdf", fileSafe(d.Employee.EmpID), d.MonthName, d.Record.PayYear)
}

type SummaryRow struct {
	EmployeeID       string  `json:"employeeId"`
	EmployeeName     string  `json:"employeeName"`
	EmpID            string  `json:"empId"`
	TotalWorkingDays float64 `json:"totalWorkingDays"`
	PaidDays         float64 `json:"paidDays"`
	LOPDays          float64 `json:"lopDays"`
	Gross            float64 `json:"gross"`
	TotalDeductions  float64 `json:"totalDeductions"`
	NetPay           float64 `json:"netPay"`
}

type SummaryTotals struct {
	TotalWorkingDays float64 `json:"totalWorkingDays"`
	PaidDays         float64 `json:"paidDays"`
	LOPDays          float64 `json:"lopDays"`
	Gross            float64 `json:"gross"`
	TotalDeductions  float64 `json:"totalDeductions"`
	NetPay           float64 `json:"netPay"`
}

// Summary is a department's payroll for one period, one row per employee
// with a record.
type Summary struct {
	Company     org.Company    `json:"company"`
	Department  org.Department `json:"department"`
	Month       int            `json:"month"`
	Year        int            `json:"year"`
	MonthName   string         `json:"monthName"`
	Rows        []SummaryRow   `json:"rows"`
	Totals      SummaryTotals  `json:"totals"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

func (s Summary) Subject() string {
	return fmt.Sprintf("Accounts Summary - %s (%s) - %s %d", s.Department.Name, s.Company.Name, s.MonthName, s.Year)
}

func (s Summary) Filename() string {
	dept := strings.Join(strings.Fields(s.Department.Name), "_")
	if dept == "" {
		dept = "dept"
	}
	return fmt.Sprintf("Accounts_%s_%s_%d.pdf", fileSafe(dept), s.MonthName, s.Year)
}

// Renderer turns resolved slip and summary data into printable documents.
type Renderer interface {
	Slip(d SlipData) ([]byte, error)
	Summary(s Summary) ([]byte, error)
}

type PDFRenderer struct{}

func (PDFRenderer) Slip(d SlipData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(d.Company.Name), "", 1, "C", false, 0, "")
	if d.Company.Address != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, tr(d.Company.Address), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Payslip for %s %d", d.MonthName, d.Record.PayYear)), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	e := d.Employee
	details := [][2]string{
		{"Employee Name", e.Name},
		{"Employee ID", e.EmpID},
		{"Designation", e.Designation},
		{"Department", d.Department.Name},
		{"Date of Joining", e.DateOfJoining},
		{"Bank", e.BankName},
		{"Account No", e.BankAccountNo},
		{"PF No", e.PFNo},
		{"ESI No", e.ESINo},
		{"UAN", e.UAN},
		{"Slip No", d.Record.SalarySlipNumber},
		{"Working Days", formatDays(d.Record.TotalWorkingDays)},
		{"Paid Days", formatDays(d.Record.PaidDays)},
		{"LOP Days", formatDays(d.Record.LOPDays)},
	}
	pdf.SetFont("Helvetica", "", 9)
	for i := 0; i < len(details); i += 2 {
		for j := i; j < i+2 && j < len(details); j++ {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.CellFormat(32, 6, tr(details[j][0]), "1", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(61, 6, tr(details[j][1]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	r := d.Record
	earnings := [][2]string{
		{"Basic Salary", FormatINR(r.BasicSalary)},
		{"HRA", FormatINR(r.HRA)},
		{"Travel Allowance", FormatINR(r.TrAllowance)},
		{"Special Allowance", FormatINR(r.SpecialAllowance)},
		{"VDA", FormatINR(r.VDA)},
		{"Food Allowance", FormatINR(r.FoodAllowance)},
		{"Uniform Refund", FormatINR(r.UniformRefund)},
	}
	deductions := [][2]string{
		{"EPF", FormatINR(r.EPF)},
		{"ESIC", FormatINR(r.ESIC)},
		{"Professional Tax", FormatINR(r.ProfessionalTax)},
		{"Advance", FormatINR(r.Advance)},
		{"LOP", FormatINR(r.LOP)},
	}

	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(55, 7, "Earnings", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 7, "Amount (Rs.)", "1", 0, "R", true, 0, "")
	pdf.CellFormat(55, 7, "Deductions", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 7, "Amount (Rs.)", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for i := 0; i < len(earnings); i++ {
		pdf.CellFormat(55, 6, earnings[i][0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 6, earnings[i][1], "1", 0, "R", false, 0, "")
		label, amount := "", ""
		if i < len(deductions) {
			label, amount = deductions[i][0], deductions[i][1]
		}
		pdf.CellFormat(55, 6, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 6, amount, "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(55, 7, "Total Earnings", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 7, FormatINR(r.TotalEarnings), "1", 0, "R", true, 0, "")
	pdf.CellFormat(55, 7, "Total Deductions", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 7, FormatINR(r.TotalDeductions), "1", 1, "R", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Net Pay: Rs. "+FormatINR(r.NetPay), "1", 1, "L", false, 0, "")

	if r.Notes != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr("Notes: "+r.Notes), "", "L", false)
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "This is a computer generated payslip and does not require a signature.", "", 1, "C", false, 0, "")

	return output(pdf)
}

func (PDFRenderer) Summary(s Summary) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(s.Company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Accounts summary: %s, %s %d", s.Department.Name, s.MonthName, s.Year)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated "+s.GeneratedAt.Format("02 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	widths := []float64{10, 60, 30, 24, 20, 20, 37, 37, 35}
	headers := []string{"#", "Employee", "Emp ID", "Work Days", "Paid", "LOP", "Gross", "Deductions", "Net Pay"}
	aligns := []string{"C", "L", "L", "R", "R", "R", "R", "R", "R"}
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for n, row := range s.Rows {
		cells := []string{
			strconv.Itoa(n + 1), tr(row.EmployeeName), tr(row.EmpID),
			formatDays(row.TotalWorkingDays), formatDays(row.PaidDays), formatDays(row.LOPDays),
			FormatINR(row.Gross), FormatINR(row.TotalDeductions), FormatINR(row.NetPay),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 9)
	t := s.Totals
	totals := []string{
		"", "Total", "",
		formatDays(t.TotalWorkingDays), formatDays(t.PaidDays), formatDays(t.LOPDays),
		FormatINR(t.Gross), FormatINR(t.TotalDeductions), FormatINR(t.NetPay),
	}
	for i, c := range totals {
		pdf.CellFormat(widths[i], 7, c, "1", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)

	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDays(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, s)
}
