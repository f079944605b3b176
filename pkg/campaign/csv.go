// pkg/campaign/csv.go

package campaign

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// CandidatesCSVName is the suffix of the analyze output; the actual file
// is prefixed with the run date.
const CandidatesCSVName = "unique_okta_users_for_reenrollment.csv"

// LoadTargetAppsCSV reads the operator's target-application list. The file
// must carry an AppName header; names are matched verbatim downstream.
func LoadTargetAppsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to open target application CSV %s", path)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to parse target application CSV %s", path)
	}
	if len(records) == 0 {
		return nil, cerr.Newf("target application CSV %s is empty", path)
	}

	col := -1
	for i, h := range records[0] {
		if strings.TrimSpace(h) == "AppName" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, cerr.WithHint(
			cerr.Newf("target application CSV %s has no AppName column", path),
			"the CSV must have a header row containing AppName")
	}

	var names []string
	for _, row := range records[1:] {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			names = append(names, strings.TrimSpace(row[col]))
		}
	}
	return names, nil
}

// WriteCandidatesCSV writes the deduplicated roster to a date-prefixed CSV
// and returns the filename. AppsInScope serializes as a semicolon-joined
// list.
func WriteCandidatesCSV(candidates []Candidate, log *zap.Logger) (string, error) {
	filename := fmt.Sprintf("%s_%s", time.Now().Format("2006-01-02"), CandidatesCSVName)
	log.Info("Writing re-enrollment roster", zap.String("path", filename), zap.Int("users", len(candidates)))

	f, err := os.Create(filename)
	if err != nil {
		return "", cerr.Wrapf(err, "failed to create %s", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"userId", "userName", "userFullName", "userEmail", "oktaVerifyExistingFactor", "appsInScope"}); err != nil {
		return "", cerr.Wrap(err, "failed to write CSV header")
	}
	for _, c := range candidates {
		row := []string{
			c.UserID,
			c.UserName,
			c.UserFullName,
			c.UserEmail,
			strconv.FormatBool(c.OktaVerifyExistingFactor),
			strings.Join(c.AppsInScope, ";"),
		}
		if err := w.Write(row); err != nil {
			return "", cerr.Wrapf(err, "failed to write row for user %s", c.UserID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", cerr.Wrapf(err, "failed to flush %s", filename)
	}
	return filename, nil
}
