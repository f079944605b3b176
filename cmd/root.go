// cmd/root.go

package cmd

import (
	"os"

	"github.com/CypressSecurity/reenroll/pkg/logger"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd is the top-level reenroll command.
var RootCmd = &cobra.Command{
	Use:   "reenroll",
	Short: "Okta Verify MFA re-enrollment campaign tooling",
	Long: `reenroll automates Okta Verify MFA re-enrollment campaigns.

The analyze command cross-references targeted applications, the user
directory and device ownership records to produce a roster of users who
lack a registered device but still carry a push factor. The run command
drives the per-user force-unenroll / re-enroll / notify pipeline against
such a roster, and can instead send proactive notifications or verify
post-campaign completion.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.AddCommand(AnalyzeCmd)
	RootCmd.AddCommand(RunCmd)
}

// Execute runs the CLI and is the single point of process termination:
// every fatal condition below propagates here as an error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		if reenroll_err.IsExpectedUserError(err) {
			zap.L().Error("Command failed", zap.String("reason", err.Error()))
		} else {
			zap.L().Error("Command failed", zap.Error(err))
		}
		logger.SafeSync()
		os.Exit(reenroll_err.ExitCode(err))
	}
	logger.SafeSync()
}
