package salary

import (
	"strconv"
	"time"

	"hrpay/internal/domain/sensitive"
)

const maskKeepLast = 4

// Projection is the read view of a stored record. Revealed projections carry
// numbers in Values; masked ones carry tail-masked strings in Masked. A field
// that fails to decrypt is nil in either mode.
type Projection struct {
	ID               string              `json:"id"`
	CompanyID        string              `json:"companyId"`
	DepartmentID     string              `json:"departmentId"`
	EmployeeID       string              `json:"employeeId"`
	PayMonth         int                 `json:"payMonth"`
	PayYear          int                 `json:"payYear"`
	SalarySlipNumber string              `json:"salarySlipNumber"`
	Attendance       Attendance          `json:"attendance"`
	Revealed         bool                `json:"revealed"`
	Values           map[string]*float64 `json:"values,omitempty"`
	Masked           map[string]*string  `json:"masked,omitempty"`
	Notes            *string             `json:"notes"`
	Snapshot         *Snapshot           `json:"snapshot"`
	IsEncrypted      bool                `json:"isEncrypted"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

var aggregateFields = map[string]bool{
	"advance":         true,
	"totalEarnings":   true,
	"totalDeductions": true,
	"netPay":          true,
}

// ProjectRecord resolves every sensitive field of r on its own. Aggregates
// that resolve are reported as reconciled, so a projection agrees with the
// record returned by reads.
func ProjectRecord(c sensitive.Cipher, r StoredRecord, reveal bool) Projection {
	p := Projection{
		ID:               r.ID,
		CompanyID:        r.Key.CompanyID,
		DepartmentID:     r.Key.DepartmentID,
		EmployeeID:       r.Key.EmployeeID,
		PayMonth:         r.Key.PayMonth,
		PayYear:          r.Key.PayYear,
		SalarySlipNumber: r.SalarySlipNumber,
		Attendance:       r.Attendance,
		Revealed:         reveal,
		IsEncrypted:      r.IsEncrypted,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}

	totals := Reconcile(r.Values.components(c), r.Values.stored(c))
	reconciled := map[string]float64{
		"advance":         totals.Advance,
		"totalEarnings":   totals.TotalEarnings,
		"totalDeductions": totals.TotalDeductions,
		"netPay":          totals.NetPay,
	}

	if reveal {
		p.Values = make(map[string]*float64, len(sealedFields))
	} else {
		p.Masked = make(map[string]*string, len(sealedFields))
	}
	for _, f := range sealedFields {
		v := f.get(&r.Values)
		n, ok := v.Resolve(c)
		if ok && aggregateFields[f.json] {
			n = reconciled[f.json]
		}
		switch {
		case reveal && ok:
			p.Values[f.json] = &n
		case reveal:
			p.Values[f.json] = nil
		case ok:
			masked := sensitive.Mask(strconv.FormatFloat(n, 'f', -1, 64), maskKeepLast)
			p.Masked[f.json] = &masked
		default:
			p.Masked[f.json] = nil
		}
	}

	if reveal {
		p.Notes = r.Notes.Ptr(c)
		p.Snapshot = openSnapshot(c, r.Snapshot)
		return p
	}
	p.Notes = sensitive.MaskedText(c, r.Notes, maskKeepLast)
	if snap := openSnapshot(c, r.Snapshot); snap != nil {
		if snap.BankAccountNo != "" {
			snap.BankAccountNo = sensitive.Mask(snap.BankAccountNo, maskKeepLast)
		}
		p.Snapshot = snap
	}
	return p
}
