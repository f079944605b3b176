// pkg/campaign/gap.go

package campaign

import (
	"github.com/CypressSecurity/reenroll/pkg/directory"
	"go.uber.org/zap"
)

// FindUsersWithoutDevice computes, per application, the members absent from
// the device ownership index. Pure set difference: membership order is
// preserved and the shared index is never mutated.
func FindUsersWithoutDevice(apps []App, devices *directory.DeviceIndex, log *zap.Logger) {
	for i := range apps {
		app := &apps[i]
		app.WithoutDevice = app.WithoutDevice[:0]
		log.Info("Finding members without a registered device", zap.String("app", app.Name))
		for _, member := range app.Members {
			if devices.Has(member.ID) {
				log.Debug("Member has a registered device",
					zap.String("app", app.Name),
					zap.String("user_id", member.ID))
				continue
			}
			log.Debug("Member has no registered device",
				zap.String("app", app.Name),
				zap.String("user_id", member.ID))
			app.WithoutDevice = append(app.WithoutDevice, member)
		}
		log.Info("Gap analysis for application complete",
			zap.String("app", app.Name),
			zap.Int("members", len(app.Members)),
			zap.Int("without_device", len(app.WithoutDevice)))
	}
}
