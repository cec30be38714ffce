package org

import (
	"time"

	"hrpay/internal/domain/sensitive"
)

type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Department struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
}

// Employee is the stored employee row. Identity documents, bank details and
// salary defaults are per-field sensitive values.
type Employee struct {
	ID            string
	CompanyID     string
	DepartmentID  string
	EmpID         string
	Name          string
	Email         string
	Designation   string
	DateOfJoining *time.Time
	BankName      string
	CreatedAt     time.Time

	Aadhar         sensitive.Text
	UAN            sensitive.Text
	PFNo           sensitive.Text
	ESINo          sensitive.Text
	BankAccountNo  sensitive.Text
	BankIFSC       sensitive.Text
	BankBranchName sensitive.Text

	Defaults SalaryDefaults
}

// SalaryDefaults are the per-employee components used to prefill a new
// salary record.
type SalaryDefaults struct {
	BasicSalary      sensitive.Value
	HRA              sensitive.Value
	TrAllowance      sensitive.Value
	SpecialAllowance sensitive.Value
	VDA              sensitive.Value
}

// EmployeeView is the read-side projection of an Employee. PII fields hold
// plaintext when revealed and tail-masked plaintext otherwise; salary
// defaults are only populated when revealed.
type EmployeeView struct {
	ID               string     `json:"id"`
	EmpID            string     `json:"empId"`
	Name             string     `json:"employeeName"`
	Email            *string    `json:"email"`
	Designation      string     `json:"designation"`
	DateOfJoining    *time.Time `json:"dateOfJoining"`
	BankName         *string    `json:"bankName"`
	Aadhar           *string    `json:"aadhar"`
	UAN              *string    `json:"uan"`
	PFNo             *string    `json:"pfNo"`
	ESINo            *string    `json:"esiNo"`
	BankAccountNo    *string    `json:"bankAccountNo"`
	BankIFSC         *string    `json:"bankIfsc"`
	BankBranchName   *string    `json:"bankBranchName"`
	BasicSalary      *float64   `json:"basicSalary"`
	HRA              *float64   `json:"hra"`
	TrAllowance      *float64   `json:"trAllowance"`
	SpecialAllowance *float64   `json:"specialAllowance"`
	VDA              *float64   `json:"vda"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type EmployeePage struct {
	Company    Company        `json:"company"`
	Department Department     `json:"department"`
	Employees  []EmployeeView `json:"employees"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	Pages      int            `json:"pages"`
	Revealed   bool           `json:"revealed"`
}
