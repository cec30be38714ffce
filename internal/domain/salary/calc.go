package salary

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Epsilon is the float64 machine epsilon added before cent rounding.
const Epsilon = 2.220446049250313e-16

// Round2 rounds half-up to two decimals after nudging by Epsilon to absorb
// binary representation error (1.005 becomes 1.01, 0.1+0.2 becomes 0.3).
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	// The explicit conversion stops the compiler fusing the multiply-add.
	return math.Floor(float64((x+Epsilon)*100)+0.5) / 100
}

// ToNumber coerces v to a finite float64. Unparseable, NaN and infinite
// inputs become 0.
func ToNumber(v any) float64 {
	var n float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		n = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// ToInteger reports whether v is a whole number, accepting numeric strings.
func ToInteger(v any) (int, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
	}
	n := ToNumber(v)
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, false
	}
	if n == 0 {
		if s, ok := v.(string); ok {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return 0, false
			}
		}
	}
	return int(n), true
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func ComputeAdvance(uniformDeduction, lateLogin, others float64) float64 {
	return Round2(finite(uniformDeduction) + finite(lateLogin) + finite(others))
}

// override reports a stored aggregate that should win over recomputation.
// Zero means "not computed" in older rows, so it never overrides.
func override(stored *float64) (float64, bool) {
	if stored == nil || finite(*stored) == 0 {
		return 0, false
	}
	return *stored, true
}

// ResolveAdvance derives advance from its sub-components, falling back to
// the stored advance only when all three are zero.
func ResolveAdvance(uniformDeduction, lateLogin, others float64, stored *float64) float64 {
	if finite(uniformDeduction) == 0 && finite(lateLogin) == 0 && finite(others) == 0 {
		if v, ok := override(stored); ok {
			return Round2(v)
		}
		return 0
	}
	return ComputeAdvance(uniformDeduction, lateLogin, others)
}

func (e Earnings) Sum() float64 {
	return finite(e.BasicSalary) + finite(e.HRA) + finite(e.TrAllowance) + finite(e.SpecialAllowance) +
		finite(e.VDA) + finite(e.FoodAllowance) + finite(e.UniformRefund)
}

// ComputeGross sums earnings. A non-zero stored total wins.
func ComputeGross(e Earnings, stored *float64) float64 {
	if v, ok := override(stored); ok {
		return Round2(v)
	}
	return Round2(e.Sum())
}

// ComputeDeductions sums epf, esic, professional tax, advance and lop. A
// non-zero stored total wins.
func ComputeDeductions(d Deductions, advance float64, stored *float64) float64 {
	if v, ok := override(stored); ok {
		return Round2(v)
	}
	return Round2(finite(d.EPF) + finite(d.ESIC) + finite(d.ProfessionalTax) + finite(advance) + finite(d.LOP))
}

// ComputeNetPay is gross minus deductions. A non-zero stored net pay wins.
func ComputeNetPay(gross, deductions float64, stored *float64) float64 {
	if v, ok := override(stored); ok {
		return Round2(v)
	}
	return Round2(finite(gross) - finite(deductions))
}

// Reconcile resolves every aggregate for c. Readers pass what storage holds.
// Writers pass only the prior advance, so the totals are always recomputed.
func Reconcile(c Components, stored StoredTotals) Totals {
	advance := ResolveAdvance(c.UniformDeduction, c.LateLogin, c.Others, stored.Advance)
	gross := ComputeGross(c.Earnings, stored.TotalEarnings)
	deductions := ComputeDeductions(c.Deductions, advance, stored.TotalDeductions)
	return Totals{
		Advance:         advance,
		TotalEarnings:   gross,
		TotalDeductions: deductions,
		NetPay:          ComputeNetPay(gross, deductions, stored.NetPay),
	}
}

// Clean replaces non-finite components with zero.
func (c Components) Clean() Components {
	c.BasicSalary = finite(c.BasicSalary)
	c.HRA = finite(c.HRA)
	c.TrAllowance = finite(c.TrAllowance)
	c.SpecialAllowance = finite(c.SpecialAllowance)
	c.VDA = finite(c.VDA)
	c.FoodAllowance = finite(c.FoodAllowance)
	c.UniformRefund = finite(c.UniformRefund)
	c.EPF = finite(c.EPF)
	c.ESIC = finite(c.ESIC)
	c.ProfessionalTax = finite(c.ProfessionalTax)
	c.UniformDeduction = finite(c.UniformDeduction)
	c.LateLogin = finite(c.LateLogin)
	c.Others = finite(c.Others)
	c.LOP = finite(c.LOP)
	return c
}

func (a Attendance) Clean() Attendance {
	a.TotalWorkingDays = finite(a.TotalWorkingDays)
	a.PaidDays = finite(a.PaidDays)
	a.LOPDays = finite(a.LOPDays)
	a.LeavesTaken = finite(a.LeavesTaken)
	return a
}

// Apply overlays the present fields of p on c.
func (p ComponentsPatch) Apply(c Components) Components {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = finite(*src)
		}
	}
	set(&c.BasicSalary, p.BasicSalary)
	set(&c.HRA, p.HRA)
	set(&c.TrAllowance, p.TrAllowance)
	set(&c.SpecialAllowance, p.SpecialAllowance)
	set(&c.VDA, p.VDA)
	set(&c.FoodAllowance, p.FoodAllowance)
	set(&c.UniformRefund, p.UniformRefund)
	set(&c.EPF, p.EPF)
	set(&c.ESIC, p.ESIC)
	set(&c.ProfessionalTax, p.ProfessionalTax)
	set(&c.UniformDeduction, p.UniformDeduction)
	set(&c.LateLogin, p.LateLogin)
	set(&c.Others, p.Others)
	set(&c.LOP, p.LOP)
	return c
}

func (p AttendancePatch) Apply(a Attendance) Attendance {
	if p.TotalWorkingDays != nil {
		a.TotalWorkingDays = finite(*p.TotalWorkingDays)
	}
	if p.PaidDays != nil {
		a.PaidDays = finite(*p.PaidDays)
	}
	if p.LOPDays != nil {
		a.LOPDays = finite(*p.LOPDays)
	}
	if p.LeavesTaken != nil {
		a.LeavesTaken = finite(*p.LeavesTaken)
	}
	return a
}
