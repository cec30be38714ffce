package salary

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatINR renders v with two decimals and Indian digit grouping
// (25,60,000.50).
func FormatINR(v float64) string {
	fixed := decimal.NewFromFloat(finite(v)).Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	if fixed == "0.00" {
		sign = ""
	}
	return sign + groupIndian(whole) + "." + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// sumRound2 adds values exactly and rounds the result to cents.
func sumRound2(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(finite(v)))
	}
	f, _ := total.Round(2).Float64()
	return f
}
