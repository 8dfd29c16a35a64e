// Package diff compares two saved report workbooks and extracts the
// vulnerability rows that appear only in the newer one.
package diff

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/secops-tools/falcon-report-diff/pkg/xlsx"
)

// IdentityColumns are the columns that determine row uniqueness across
// the two compared files.
var IdentityColumns = []string{
	"CVE ID",
	"Image repository",
	"Image tag",
	"Image name",
	"Image registry",
}

// AssessmentFilename is the output path for a comparison run.
func AssessmentFilename(dir string, now time.Time) string {
	return filepath.Join(dir, now.Format("2006_01_02")+"_ImageVulnerabilityAssessment.xlsx")
}

// Compare loads both workbooks and writes the identity columns of every
// row present in newerPath but absent from olderPath to a new workbook
// under outDir, returning its path. Ordering contract: the first
// argument is the more recent execution, and the output is the findings
// it introduced. Rows without a CVE ID are ignored on both sides;
// duplicate newer rows are all emitted.
func Compare(newerPath, olderPath, outDir string) (string, error) {
	newer, err := identityRows(newerPath)
	if err != nil {
		return "", err
	}
	older, err := identityRows(olderPath)
	if err != nil {
		return "", err
	}

	known := make(map[string]struct{}, len(older))
	for _, row := range older {
		known[keyOf(row)] = struct{}{}
	}

	unique := make([][]string, 0)
	for _, row := range newer {
		if _, ok := known[keyOf(row)]; !ok {
			unique = append(unique, row)
		}
	}

	out := AssessmentFilename(outDir, time.Now())
	if err := xlsx.WriteRows(out, IdentityColumns, unique); err != nil {
		return "", err
	}
	return out, nil
}

// identityRows extracts the identity-column values of every row with a
// non-empty CVE ID, in sheet order.
func identityRows(path string) ([][]string, error) {
	rows, err := xlsx.ReadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no header row", path)
	}

	indices := make([]int, len(IdentityColumns))
	for i, name := range IdentityColumns {
		indices[i] = -1
		for j, cell := range rows[0] {
			if strings.TrimSpace(cell) == name {
				indices[i] = j
				break
			}
		}
		if indices[i] == -1 {
			return nil, fmt.Errorf("%s is missing column %q", path, name)
		}
	}

	var out [][]string
	for _, row := range rows[1:] {
		tuple := make([]string, len(indices))
		for i, idx := range indices {
			if idx < len(row) {
				tuple[i] = row[idx]
			}
		}
		// CVE ID is the first identity column
		if tuple[0] == "" {
			continue
		}
		out = append(out, tuple)
	}
	return out, nil
}

func keyOf(row []string) string {
	return strings.Join(row, "|")
}
