package report

import (
	"sort"
	"strings"
	"time"

	"github.com/secops-tools/falcon-report-diff/pkg/falcon"
)

// createdOnLayout matches the vendor's ISO-8601 timestamps. The fraction
// digits are optional so narrower precision still parses.
const createdOnLayout = "2006-01-02T15:04:05.999999"

// maxCreatedOnLen is the widest created_on prefix we parse: date, time,
// and six fractional digits. Anything wider is trimmed to this.
const maxCreatedOnLen = 26

// SelectLatest returns at most the two most recent executions, newest
// first. ISO-8601 strings order lexicographically, so the raw created_on
// value is the sort key; the sort is stable, so equal timestamps keep
// their upstream order.
func SelectLatest(execs []falcon.Execution) []falcon.Execution {
	sorted := make([]falcon.Execution, len(execs))
	copy(sorted, execs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedOn > sorted[j].CreatedOn
	})
	if len(sorted) > 2 {
		sorted = sorted[:2]
	}
	return sorted
}

// DateSuffix derives the YYYYMMDD filename suffix from an execution's
// created_on value. An absent or unparseable timestamp yields "unknown".
func DateSuffix(createdOn string) string {
	if createdOn == "" {
		return "unknown"
	}
	s := strings.TrimSuffix(createdOn, "Z")
	if len(s) > maxCreatedOnLen {
		s = s[:maxCreatedOnLen]
	}
	t, err := time.Parse(createdOnLayout, s)
	if err != nil {
		return "unknown"
	}
	return t.Format("20060102")
}
