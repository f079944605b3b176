// pkg/campaign/inspector.go

package campaign

import (
	"context"

	"github.com/CypressSecurity/reenroll/pkg/okta"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// FactorSource is the slice of the Okta API factor classification needs.
type FactorSource interface {
	FetchUserFactors(ctx context.Context, userID string) ([]okta.Factor, error)
}

// ClassifyPushFactors fetches a user's enrolled factors and classifies the
// push-type ones. Zero factors is a valid, empty classification. Sensitive
// key material never enters the result: the factor type drops it at decode
// time.
func ClassifyPushFactors(ctx context.Context, src FactorSource, user okta.User, log *zap.Logger) (TargetUser, error) {
	log.Debug("Querying enrolled factors", zap.String("user", user.Label()))

	factors, err := src.FetchUserFactors(ctx, user.ID)
	if err != nil {
		return TargetUser{}, cerr.Wrapf(err, "failed to classify factors for %s", user.Label())
	}

	target := TargetUser{User: user, AllFactors: factors}
	for _, f := range factors {
		if !f.IsPush() {
			continue
		}
		log.Debug("Found enrolled push factor",
			zap.String("user", user.Label()),
			zap.String("factor_id", f.ID))
		target.PushFactorExists = true
		target.PushFactors = append(target.PushFactors, f)
	}
	if !target.PushFactorExists {
		log.Debug("No push factor enrolled", zap.String("user", user.Label()))
	}
	return target, nil
}

// InspectTargets runs push-factor classification over every member without
// a device and fills each app's Targeted list with the users that have a
// factor to reset.
func InspectTargets(ctx context.Context, src FactorSource, apps []App, log *zap.Logger) error {
	for i := range apps {
		app := &apps[i]
		if len(app.WithoutDevice) == 0 {
			log.Info("All members already have registered devices, skipping factor check",
				zap.String("app", app.Name))
			continue
		}

		log.Info("Checking push factors for members without a device",
			zap.String("app", app.Name),
			zap.Int("count", len(app.WithoutDevice)))
		for _, member := range app.WithoutDevice {
			target, err := ClassifyPushFactors(ctx, src, member, log)
			if err != nil {
				return err
			}
			if target.PushFactorExists {
				app.Targeted = append(app.Targeted, target)
			}
		}
		log.Info("Factor inspection for application complete",
			zap.String("app", app.Name),
			zap.Int("targeted", len(app.Targeted)))
	}
	return nil
}
