package salary

import (
	"encoding/json"
	"time"

	"hrpay/internal/domain/sensitive"
)

const PageSize = 15

// Owner is the company/department/employee chain that scopes every record
// operation.
type Owner struct {
	CompanyID    string
	DepartmentID string
	EmployeeID   string
}

// PeriodKey identifies one salary record. At most one record exists per
// employee, month and year.
type PeriodKey struct {
	Owner
	PayMonth int
	PayYear  int
}

type Earnings struct {
	BasicSalary      float64 `json:"basicSalary"`
	HRA              float64 `json:"hra"`
	TrAllowance      float64 `json:"trAllowance"`
	SpecialAllowance float64 `json:"specialAllowance"`
	VDA              float64 `json:"vda"`
	FoodAllowance    float64 `json:"foodAllowance"`
	UniformRefund    float64 `json:"uniformRefund"`
}

// Deductions holds the deduction primitives. Advance is derived from
// UniformDeduction, LateLogin and Others.
type Deductions struct {
	EPF              float64 `json:"epf"`
	ESIC             float64 `json:"esic"`
	ProfessionalTax  float64 `json:"professionalTax"`
	UniformDeduction float64 `json:"uniformDeduction"`
	LateLogin        float64 `json:"lateLogin"`
	Others           float64 `json:"others"`
	LOP              float64 `json:"lop"`
}

type Components struct {
	Earnings
	Deductions
}

type Attendance struct {
	TotalWorkingDays float64 `json:"totalWorkingDays"`
	PaidDays         float64 `json:"paidDays"`
	LOPDays          float64 `json:"lopDays"`
	LeavesTaken      float64 `json:"leavesTaken"`
}

type Totals struct {
	Advance         float64 `json:"advance"`
	TotalEarnings   float64 `json:"totalEarnings"`
	TotalDeductions float64 `json:"totalDeductions"`
	NetPay          float64 `json:"netPay"`
}

// StoredTotals are aggregates read back from storage. nil means absent.
type StoredTotals struct {
	Advance         *float64
	TotalEarnings   *float64
	TotalDeductions *float64
	NetPay          *float64
}

// Snapshot freezes employee identity at record creation.
type Snapshot struct {
	EmployeeName  string `json:"employeeName"`
	EmpID         string `json:"empId"`
	Designation   string `json:"designation"`
	BankName      string `json:"bankName"`
	BankAccountNo string `json:"bankAccountNo"`
	DateOfJoining string `json:"dateOfJoining"`
}

// Sealed holds every sensitive numeric field of a record.
type Sealed struct {
	BasicSalary      sensitive.Value
	HRA              sensitive.Value
	TrAllowance      sensitive.Value
	SpecialAllowance sensitive.Value
	VDA              sensitive.Value
	FoodAllowance    sensitive.Value
	UniformRefund    sensitive.Value
	EPF              sensitive.Value
	ESIC             sensitive.Value
	ProfessionalTax  sensitive.Value
	Advance          sensitive.Value
	UniformDeduction sensitive.Value
	LateLogin        sensitive.Value
	Others           sensitive.Value
	LOP              sensitive.Value
	TotalEarnings    sensitive.Value
	TotalDeductions  sensitive.Value
	NetPay           sensitive.Value
}

// StoredRecord is the persisted shape of a salary record.
type StoredRecord struct {
	ID               string
	Key              PeriodKey
	SalarySlipNumber string
	Attendance       Attendance
	Values           Sealed
	Notes            sensitive.Text
	Snapshot         sensitive.Text
	IsEncrypted      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Record is a salary record with every sensitive field resolved to plain
// values.
type Record struct {
	ID               string `json:"id"`
	CompanyID        string `json:"companyId"`
	DepartmentID     string `json:"departmentId"`
	EmployeeID       string `json:"employeeId"`
	PayMonth         int    `json:"payMonth"`
	PayYear          int    `json:"payYear"`
	SalarySlipNumber string `json:"salarySlipNumber"`
	Attendance
	Components
	Totals
	Notes       string    `json:"notes"`
	Snapshot    *Snapshot `json:"snapshot"`
	IsEncrypted bool      `json:"isEncrypted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Input struct {
	PayMonth         int
	PayYear          int
	SalarySlipNumber string
	Components       Components
	Attendance       Attendance
	Notes            string
}

// ComponentsPatch carries only the components present in an update.
type ComponentsPatch struct {
	BasicSalary      *float64
	HRA              *float64
	TrAllowance      *float64
	SpecialAllowance *float64
	VDA              *float64
	FoodAllowance    *float64
	UniformRefund    *float64
	EPF              *float64
	ESIC             *float64
	ProfessionalTax  *float64
	UniformDeduction *float64
	LateLogin        *float64
	Others           *float64
	LOP              *float64
}

type AttendancePatch struct {
	TotalWorkingDays *float64
	PaidDays         *float64
	LOPDays          *float64
	LeavesTaken      *float64
}

type Patch struct {
	PayMonth         *int
	PayYear          *int
	SalarySlipNumber *string
	Notes            *string
	Components       ComponentsPatch
	Attendance       AttendancePatch
}

type Page struct {
	Items      []Record `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
}

type ProjectionPage struct {
	Items      []Projection `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
	Revealed   bool         `json:"revealed"`
}

// Defaults are an employee's stored salary components used to prefill a
// new record.
type Defaults struct {
	BasicSalary      float64 `json:"basicSalary"`
	HRA              float64 `json:"hra"`
	TrAllowance      float64 `json:"trAllowance"`
	SpecialAllowance float64 `json:"specialAllowance"`
	VDA              float64 `json:"vda"`
}

// Amount decodes a JSON number, numeric string, or null. Anything that is
// not a finite number decodes as zero.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(ToNumber(raw))
	return nil
}

func (a *Amount) Ptr() *float64 {
	if a == nil {
		return nil
	}
	v := float64(*a)
	return &v
}
