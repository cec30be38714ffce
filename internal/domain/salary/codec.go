package salary

import (
	"encoding/json"

	"hrpay/internal/domain/sensitive"
)

// field binds one sealed column pair to its accessor. The order matches the
// column order used by the store.
type field struct {
	column string
	json   string
	get    func(*Sealed) *sensitive.Value
}

var sealedFields = []field{
	{"basic_salary", "basicSalary", func(s *Sealed) *sensitive.Value { return &s.BasicSalary }},
	{"hra", "hra", func(s *Sealed) *sensitive.Value { return &s.HRA }},
	{"tr_allowance", "trAllowance", func(s *Sealed) *sensitive.Value { return &s.TrAllowance }},
	{"special_allowance", "specialAllowance", func(s *Sealed) *sensitive.Value { return &s.SpecialAllowance }},
	{"vda", "vda", func(s *Sealed) *sensitive.Value { return &s.VDA }},
	{"food_allowance", "foodAllowance", func(s *Sealed) *sensitive.Value { return &s.FoodAllowance }},
	{"uniform_refund", "uniformRefund", func(s *Sealed) *sensitive.Value { return &s.UniformRefund }},
	{"epf", "epf", func(s *Sealed) *sensitive.Value { return &s.EPF }},
	{"esic", "esic", func(s *Sealed) *sensitive.Value { return &s.ESIC }},
	{"professional_tax", "professionalTax", func(s *Sealed) *sensitive.Value { return &s.ProfessionalTax }},
	{"advance", "advance", func(s *Sealed) *sensitive.Value { return &s.Advance }},
	{"uniform_deduction", "uniformDeduction", func(s *Sealed) *sensitive.Value { return &s.UniformDeduction }},
	{"late_login", "lateLogin", func(s *Sealed) *sensitive.Value { return &s.LateLogin }},
	{"others", "others", func(s *Sealed) *sensitive.Value { return &s.Others }},
	{"lop", "lop", func(s *Sealed) *sensitive.Value { return &s.LOP }},
	{"total_earnings", "totalEarnings", func(s *Sealed) *sensitive.Value { return &s.TotalEarnings }},
	{"total_deductions", "totalDeductions", func(s *Sealed) *sensitive.Value { return &s.TotalDeductions }},
	{"net_pay", "netPay", func(s *Sealed) *sensitive.Value { return &s.NetPay }},
}

func plainValues(c Components, t Totals) map[string]float64 {
	return map[string]float64{
		"basicSalary":      c.BasicSalary,
		"hra":              c.HRA,
		"trAllowance":      c.TrAllowance,
		"specialAllowance": c.SpecialAllowance,
		"vda":              c.VDA,
		"foodAllowance":    c.FoodAllowance,
		"uniformRefund":    c.UniformRefund,
		"epf":              c.EPF,
		"esic":             c.ESIC,
		"professionalTax":  c.ProfessionalTax,
		"advance":          t.Advance,
		"uniformDeduction": c.UniformDeduction,
		"lateLogin":        c.LateLogin,
		"others":           c.Others,
		"lop":              c.LOP,
		"totalEarnings":    t.TotalEarnings,
		"totalDeductions":  t.TotalDeductions,
		"netPay":           t.NetPay,
	}
}

// seal encrypts every component and aggregate. The record is flagged
// encrypted only when the cipher has a key.
func seal(c sensitive.Cipher, comps Components, totals Totals) (Sealed, bool, error) {
	var out Sealed
	values := plainValues(comps, totals)
	for _, f := range sealedFields {
		v, err := sensitive.SealValue(c, values[f.json])
		if err != nil {
			return Sealed{}, false, err
		}
		*f.get(&out) = v
	}
	return out, c.Configured(), nil
}

func sealSnapshot(c sensitive.Cipher, snap Snapshot) (sensitive.Text, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return sensitive.Text{}, err
	}
	return sensitive.SealText(c, string(raw))
}

// components resolves the stored primitives, treating undecryptable fields
// as zero.
func (s Sealed) components(c sensitive.Cipher) Components {
	return Components{
		Earnings: Earnings{
			BasicSalary:      s.BasicSalary.Or0(c),
			HRA:              s.HRA.Or0(c),
			TrAllowance:      s.TrAllowance.Or0(c),
			SpecialAllowance: s.SpecialAllowance.Or0(c),
			VDA:              s.VDA.Or0(c),
			FoodAllowance:    s.FoodAllowance.Or0(c),
			UniformRefund:    s.UniformRefund.Or0(c),
		},
		Deductions: Deductions{
			EPF:              s.EPF.Or0(c),
			ESIC:             s.ESIC.Or0(c),
			ProfessionalTax:  s.ProfessionalTax.Or0(c),
			UniformDeduction: s.UniformDeduction.Or0(c),
			LateLogin:        s.LateLogin.Or0(c),
			Others:           s.Others.Or0(c),
			LOP:              s.LOP.Or0(c),
		},
	}
}

// present resolves a stored aggregate. Values that fail to decrypt or hold
// zero are absent, since older rows left totals at 0 when nothing was
// computed.
func present(c sensitive.Cipher, v sensitive.Value) *float64 {
	if n, ok := v.Resolve(c); ok && n != 0 {
		return &n
	}
	return nil
}

func (s Sealed) stored(c sensitive.Cipher) StoredTotals {
	return StoredTotals{
		Advance:         present(c, s.Advance),
		TotalEarnings:   present(c, s.TotalEarnings),
		TotalDeductions: present(c, s.TotalDeductions),
		NetPay:          present(c, s.NetPay),
	}
}

func openSnapshot(c sensitive.Cipher, t sensitive.Text) *Snapshot {
	raw, ok := t.Resolve(c)
	if !ok || raw == "" {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil
	}
	return &snap
}

// open resolves a stored record into plain values. Decryption failures never
// abort the read; the affected field falls back to zero or empty.
func open(c sensitive.Cipher, r StoredRecord) Record {
	comps := r.Values.components(c)
	return Record{
		ID:               r.ID,
		CompanyID:        r.Key.CompanyID,
		DepartmentID:     r.Key.DepartmentID,
		EmployeeID:       r.Key.EmployeeID,
		PayMonth:         r.Key.PayMonth,
		PayYear:          r.Key.PayYear,
		SalarySlipNumber: r.SalarySlipNumber,
		Attendance:       r.Attendance,
		Components:       comps,
		Totals:           Reconcile(comps, r.Values.stored(c)),
		Notes:            r.Notes.OrEmpty(c),
		Snapshot:         openSnapshot(c, r.Snapshot),
		IsEncrypted:      r.IsEncrypted,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
