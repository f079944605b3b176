// cmd/analyze.go

package cmd

import (
	"github.com/CypressSecurity/reenroll/pkg/campaign"
	"github.com/CypressSecurity/reenroll/pkg/config"
	"github.com/CypressSecurity/reenroll/pkg/directory"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_cli"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_io"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var analyzeAppsPath string

// AnalyzeCmd runs the gap-analysis campaign and produces the candidate
// roster CSV.
var AnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find targeted-app users lacking a registered device",
	Long: `Cross-reference the targeted applications against the user directory
and device ownership records.

For each application named in the target CSV, analyze fetches the
membership, drops every member who owns a registered device, keeps the
remainder that still carry an Okta Verify push factor, and writes one
deduplicated roster of candidates for re-enrollment.

User and device collections are cached as JSON snapshots next to the
working directory (okta_users.json, okta_device_users.json); delete the
snapshots to force a fresh fetch.`,
	RunE: reenroll_cli.Wrap(func(rc *reenroll_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		logger := otelzap.Ctx(rc.Ctx)

		cfg, err := config.Load()
		if err != nil {
			return reenroll_err.NewExpectedError(err)
		}
		if err := cfg.RequireOkta(); err != nil {
			return reenroll_err.NewExpectedError(err)
		}

		client := okta.NewClient(cfg.OktaURL, cfg.OktaToken, rc.Log)

		allApps, err := client.FetchAllApplications(rc.Ctx)
		if err != nil {
			return err
		}

		names, err := campaign.LoadTargetAppsCSV(analyzeAppsPath)
		if err != nil {
			return reenroll_err.NewExpectedError(err)
		}
		apps := campaign.ResolveTargetApps(names, allApps, rc.Log)

		users, err := directory.BuildUserIndex(rc.Ctx, client, directory.UsersSnapshotPath, rc.Log)
		if err != nil {
			return err
		}

		devices, ok, err := directory.LoadDeviceIndex(directory.DevicesSnapshotPath)
		if err != nil {
			return err
		}
		if !ok {
			devices, err = directory.BuildDeviceIndex(rc.Ctx, client, rc.Log)
			if err != nil {
				return err
			}
			if err := devices.Save(directory.DevicesSnapshotPath); err != nil {
				rc.Log.Error("Failed to persist device snapshot", zap.Error(err))
			}
		} else {
			logger.Info("Loaded device ownership index from snapshot",
				zap.String("path", directory.DevicesSnapshotPath))
		}

		if err := campaign.FetchMemberships(rc.Ctx, client, client, users, apps, rc.Log); err != nil {
			return err
		}
		campaign.FindUsersWithoutDevice(apps, devices, rc.Log)
		if err := campaign.InspectTargets(rc.Ctx, client, apps, rc.Log); err != nil {
			return err
		}

		candidates := campaign.DedupeCandidates(apps, rc.Log)
		path, err := campaign.WriteCandidatesCSV(candidates, rc.Log)
		if err != nil {
			return err
		}

		logger.Info("Gap analysis complete",
			zap.Int("candidates", len(candidates)),
			zap.String("output", path))
		return nil
	}),
}

func init() {
	AnalyzeCmd.Flags().StringVarP(&analyzeAppsPath, "apps", "a", "./okta_apps.csv",
		"path to the CSV of targeted application names (header: AppName)")
}
