package org

import "hrpay/internal/domain/sensitive"

const (
	keepLastDefault = 4
	keepLastShortID = 3
)

// ProjectEmployee builds the read view of e. Each sensitive field is
// resolved on its own, so one bad token only blanks that field.
func ProjectEmployee(c sensitive.Cipher, e Employee, reveal bool) EmployeeView {
	text := func(t sensitive.Text, keepLast int) *string {
		if reveal {
			return t.Ptr(c)
		}
		return sensitive.MaskedText(c, t, keepLast)
	}
	number := func(v sensitive.Value) *float64 {
		if !reveal {
			return nil
		}
		return v.Ptr(c)
	}

	return EmployeeView{
		ID:               e.ID,
		EmpID:            e.EmpID,
		Name:             e.Name,
		Email:            optional(e.Email),
		Designation:      e.Designation,
		DateOfJoining:    e.DateOfJoining,
		BankName:         optional(e.BankName),
		Aadhar:           text(e.Aadhar, keepLastDefault),
		UAN:              text(e.UAN, keepLastDefault),
		PFNo:             text(e.PFNo, keepLastShortID),
		ESINo:            text(e.ESINo, keepLastShortID),
		BankAccountNo:    text(e.BankAccountNo, keepLastDefault),
		BankIFSC:         text(e.BankIFSC, keepLastDefault),
		BankBranchName:   text(e.BankBranchName, keepLastDefault),
		BasicSalary:      number(e.Defaults.BasicSalary),
		HRA:              number(e.Defaults.HRA),
		TrAllowance:      number(e.Defaults.TrAllowance),
		SpecialAllowance: number(e.Defaults.SpecialAllowance),
		VDA:              number(e.Defaults.VDA),
		CreatedAt:        e.CreatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
