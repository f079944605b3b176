// pkg/workflow/roster.go

package workflow

import (
	"encoding/csv"
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// Well-known roster columns. Only userEmail is mandatory; verification
// additionally needs userId.
const (
	ColUserEmail    = "userEmail"
	ColUserID       = "userId"
	ColUserName     = "userName"
	ColUserFullName = "userFullName"
)

// ExampleCSV is printed for --example so operators can see the expected
// roster shape.
const ExampleCSV = `userName,userFullName,userEmail
sv12345@example.com,Sebastian Vettel,SVettel@example.com
`

// Roster is an operator-supplied user list. Columns beyond the well-known
// ones are preserved and echoed into verification output.
type Roster struct {
	Header []string
	Rows   []RosterRow
}

// RosterRow is one roster entry, keyed by column name.
type RosterRow map[string]string

// Email returns the row's userEmail value.
func (r RosterRow) Email() string { return r[ColUserEmail] }

// UserID returns the row's userId value.
func (r RosterRow) UserID() string { return r[ColUserID] }

// FullName returns the row's userFullName value, falling back to the
// email.
func (r RosterRow) FullName() string {
	if v := r[ColUserFullName]; v != "" {
		return v
	}
	return r.Email()
}

// LoadRoster reads and validates a roster CSV. A missing, empty or
// malformed file is an error with operator guidance; the caller decides
// process termination.
func LoadRoster(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerr.WithHint(
			cerr.Wrapf(err, "failed to open roster CSV %s", path),
			"provide a valid path to a CSV of users with --path <filepath>, or run with --example to see the format")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, cerr.WithHint(
			cerr.Wrapf(err, "failed to parse roster CSV %s", path),
			"the file must be a well-formed CSV; run with --example to see the format")
	}
	if len(records) < 2 {
		return nil, cerr.WithHint(
			cerr.Newf("roster CSV %s is empty", path),
			"the CSV needs a header row plus at least one user row; run with --example to see the format")
	}

	header := make([]string, len(records[0]))
	emailCol := -1
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
		if header[i] == ColUserEmail {
			emailCol = i
		}
	}
	if emailCol < 0 {
		return nil, cerr.WithHint(
			cerr.Newf("roster CSV %s has no %s column", path, ColUserEmail),
			"every roster must carry a userEmail column")
	}

	rows := make([]RosterRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(RosterRow, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}

	return &Roster{Header: header, Rows: rows}, nil
}
