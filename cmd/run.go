// cmd/run.go

package cmd

import (
	"fmt"

	"github.com/CypressSecurity/reenroll/pkg/config"
	"github.com/CypressSecurity/reenroll/pkg/notify"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_cli"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_io"
	"github.com/CypressSecurity/reenroll/pkg/workflow"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	runPath             string
	runExample          bool
	runNotification     bool
	runDate             string
	runVerifyEnrollment bool
	runUseCachedDevices bool
)

// RunCmd drives the per-user workflows against a roster CSV.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Force re-enroll Okta Verify push factors for a roster of users",
	Long: `Run the re-enrollment workflow against a roster CSV.

Without mode flags, every roster user has all Okta Verify push factors
force-unenrolled, one fresh push factor enrolled, and an instruction email
sent. With --notification (and --date), only a proactive advance-warning
email is sent. With --verifyenrollment, each roster user is checked for a
registered device and a results CSV is written; add --usecacheddevices to
reuse the locally cached device mapping instead of refetching (faster, but
blind to re-enrollments that happened after the snapshot was written).`,
	RunE: reenroll_cli.Wrap(func(rc *reenroll_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		logger := otelzap.Ctx(rc.Ctx)

		if runExample {
			logger.Info("Below is an example of how to format your roster CSV")
			fmt.Print(workflow.ExampleCSV)
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return reenroll_err.NewExpectedError(err)
		}
		if err := cfg.RequireOkta(); err != nil {
			return reenroll_err.NewExpectedError(err)
		}

		path := runPath
		if path == "" {
			path = cfg.UserCSVPath
		}
		if path == "" {
			return reenroll_err.NewExpectedErrorf(
				"no roster provided: pass --path <csv> or set USER_CSV_PATH (run with --example to see the format)")
		}

		roster, err := workflow.LoadRoster(path)
		if err != nil {
			return reenroll_err.NewExpectedError(err)
		}
		logger.Info("Loaded roster", zap.String("path", path), zap.Int("users", len(roster.Rows)))

		client := okta.NewClient(cfg.OktaURL, cfg.OktaToken, rc.Log)

		switch {
		case runVerifyEnrollment:
			results, err := workflow.Verify(rc.Ctx, client, roster, runUseCachedDevices, rc.Log)
			if err != nil {
				return err
			}
			out, err := workflow.WriteVerificationCSV(roster, results, rc.Log)
			if err != nil {
				return err
			}
			logger.Info("Verification complete", zap.String("output", out))
			return nil

		case runNotification:
			if runDate == "" {
				return reenroll_err.NewExpectedErrorf(
					"--notification requires the change date via --date, e.g. --date 01/31/2026")
			}
			engine, err := buildEngine(client, cfg, rc)
			if err != nil {
				return err
			}
			return engine.Notify(rc.Ctx, roster, runDate)

		default:
			engine, err := buildEngine(client, cfg, rc)
			if err != nil {
				return err
			}
			results, err := engine.Run(rc.Ctx, roster)
			if err != nil {
				return err
			}
			summarize(results, rc.Log)
			return nil
		}
	}),
}

func buildEngine(client *okta.Client, cfg *config.Options, rc *reenroll_io.RuntimeContext) (*workflow.Engine, error) {
	if err := cfg.RequireMailer(); err != nil {
		return nil, reenroll_err.NewExpectedError(err)
	}
	tokens := notify.NewTokenSource(cfg.GraphTokenURL, cfg.GraphClientID, cfg.GraphClientSecret, rc.Log)
	mailer := notify.NewMailer(cfg.SourceEmail, tokens, rc.Log)
	return workflow.NewEngine(client, mailer, cfg, rc.Log), nil
}

func summarize(results []workflow.Result, log *zap.Logger) {
	var notified, failed int
	for _, r := range results {
		if r.State == workflow.StateNotified {
			notified++
		} else {
			failed++
			log.Error("User did not complete the pipeline",
				zap.String("email", r.Email),
				zap.String("state", string(r.State)),
				zap.Error(r.Err))
		}
	}
	log.Info("Re-enrollment batch complete",
		zap.Int("notified", notified),
		zap.Int("failed", failed))
}

func init() {
	RunCmd.Flags().StringVarP(&runPath, "path", "p", "",
		"path to the roster CSV of users to re-enroll (falls back to USER_CSV_PATH)")
	RunCmd.Flags().BoolVarP(&runExample, "example", "e", false,
		"print an example roster CSV and exit")
	RunCmd.Flags().BoolVarP(&runNotification, "notification", "n", false,
		"send proactive notification emails only; requires --date")
	RunCmd.Flags().StringVarP(&runDate, "date", "d", "",
		"date of the upcoming change, used with --notification")
	RunCmd.Flags().BoolVar(&runVerifyEnrollment, "verifyenrollment", false,
		"verify that each roster user now has a registered device")
	RunCmd.Flags().BoolVar(&runUseCachedDevices, "usecacheddevices", false,
		"with --verifyenrollment, use the cached user_device_mapping.json instead of refetching")
}
