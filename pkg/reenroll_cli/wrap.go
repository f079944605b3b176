// pkg/reenroll_cli/wrap.go

package reenroll_cli

import (
	"context"

	"github.com/CypressSecurity/reenroll/pkg/reenroll_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap adapts a RuntimeContext-aware handler into a cobra RunE, adding
// panic recovery and outcome logging so individual commands never have to.
func Wrap(fn func(rc *reenroll_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := reenroll_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		return fn(rc, cmd, args)
	}
}
