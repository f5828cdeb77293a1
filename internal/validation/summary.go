package validation

import "github.com/JaimeStill/preflight/internal/rules"

// Summary aggregates rule statuses. It is derived on demand and never
// stored.
type Summary struct {
	Total           int  `json:"total"`
	Passed          int  `json:"passed"`
	Failed          int  `json:"failed"`
	Pending         int  `json:"pending"`
	Validating      int  `json:"validating"`
	ReportAvailable bool `json:"report_available"`
}

// Summarize counts rs by status. A report is available only when nothing
// failed and at least one rule passed.
func Summarize(rs []rules.Rule) Summary {
	s := Summary{Total: len(rs)}
	for _, r := range rs {
		switch r.Status {
		case rules.StatusPassed:
			s.Passed++
		case rules.StatusFailed:
			s.Failed++
		case rules.StatusValidating:
			s.Validating++
		default:
			s.Pending++
		}
	}
	s.ReportAvailable = s.Failed == 0 && s.Passed > 0
	return s
}

// Complete reports whether every rule reached a terminal status.
func (s Summary) Complete() bool {
	return s.Total > 0 && s.Passed+s.Failed == s.Total
}
