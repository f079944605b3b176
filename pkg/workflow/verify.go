// pkg/workflow/verify.go

package workflow

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/CypressSecurity/reenroll/pkg/directory"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// VerificationCSVName is the suffix of the verification report; the file
// is prefixed with the run date.
const VerificationCSVName = "enrollment_verification_results.csv"

// VerificationResult is one roster row plus its enrollment status.
type VerificationResult struct {
	Row      RosterRow
	Enrolled bool
}

// Verify checks whether each previously-flagged roster user now owns a
// registered device. With useCached the device index is loaded from the
// local snapshot; that data is only as fresh as its write time, so a user
// who re-enrolled after the snapshot was taken will still read as not
// enrolled.
func Verify(ctx context.Context, src directory.DeviceSource, roster *Roster, useCached bool, log *zap.Logger) ([]VerificationResult, error) {
	var index *directory.DeviceIndex

	if useCached {
		log.Warn("Using cached device data; users who re-enrolled after the snapshot was written will appear unenrolled",
			zap.String("path", directory.VerificationSnapshotPath))
		loaded, ok, err := directory.LoadDeviceIndex(directory.VerificationSnapshotPath)
		if err != nil {
			return nil, cerr.Wrap(err, "failed to load cached device mapping")
		}
		if !ok {
			return nil, reenroll_err.NewExpectedErrorf(
				"--usecacheddevices was set but the required file %s does not exist",
				directory.VerificationSnapshotPath)
		}
		index = loaded
	} else {
		built, err := directory.BuildDeviceIndex(ctx, src, log)
		if err != nil {
			return nil, err
		}
		if err := built.Save(directory.VerificationSnapshotPath); err != nil {
			log.Error("Failed to persist device mapping snapshot", zap.Error(err))
		}
		index = built
	}

	log.Info("Comparing roster against device ownership index",
		zap.Int("mappings", index.Len()),
		zap.Int("users", len(roster.Rows)))

	results := make([]VerificationResult, 0, len(roster.Rows))
	for _, row := range roster.Rows {
		if row.UserID() == "" {
			return nil, reenroll_err.NewExpectedErrorf(
				"roster row for %s has no %s value; verification requires the %s column",
				row.Email(), ColUserID, ColUserID)
		}
		enrolled := index.Has(row.UserID())
		log.Debug("Checked enrollment status",
			zap.String("user", row.FullName()),
			zap.String("user_id", row.UserID()),
			zap.Bool("enrolled", enrolled))
		results = append(results, VerificationResult{Row: row, Enrolled: enrolled})
	}
	log.Info("Finished enrollment verification comparison")
	return results, nil
}

// WriteVerificationCSV writes the verification report: the original roster
// columns plus enrollmentStatus. Returns the date-prefixed filename.
func WriteVerificationCSV(roster *Roster, results []VerificationResult, log *zap.Logger) (string, error) {
	filename := fmt.Sprintf("%s_%s", time.Now().Format("2006-01-02"), VerificationCSVName)
	log.Info("Writing enrollment verification results", zap.String("path", filename))

	f, err := os.Create(filename)
	if err != nil {
		return "", cerr.Wrapf(err, "failed to create %s", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string{}, roster.Header...), "enrollmentStatus")
	if err := w.Write(header); err != nil {
		return "", cerr.Wrap(err, "failed to write CSV header")
	}
	for _, res := range results {
		row := make([]string, 0, len(header))
		for _, col := range roster.Header {
			row = append(row, res.Row[col])
		}
		row = append(row, strconv.FormatBool(res.Enrolled))
		if err := w.Write(row); err != nil {
			return "", cerr.Wrapf(err, "failed to write row for %s", res.Row.Email())
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", cerr.Wrapf(err, "failed to flush %s", filename)
	}
	return filename, nil
}
