// pkg/campaign/resolver.go

package campaign

import (
	"context"

	"github.com/CypressSecurity/reenroll/pkg/directory"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// AppUserSource is the slice of the Okta API membership fetching needs.
type AppUserSource interface {
	FetchAppUsers(ctx context.Context, appID string) ([]okta.User, error)
}

// ResolveTargetApps matches operator-supplied application names against the
// org's full application list by exact label. Name collisions resolve
// last-write-wins; an unmatched name is logged and skipped so one typo in
// the CSV does not block the legitimate rows.
func ResolveTargetApps(names []string, allApps []okta.Application, log *zap.Logger) []App {
	byLabel := make(map[string]okta.Application, len(allApps))
	for _, app := range allApps {
		byLabel[app.Label] = app
	}

	resolved := make([]App, 0, len(names))
	for _, name := range names {
		app, ok := byLabel[name]
		if !ok {
			log.Error("Application name not found in Okta app list, skipping", zap.String("app_name", name))
			continue
		}
		resolved = append(resolved, App{ID: app.ID, Name: app.Label})
	}
	log.Info("Resolved targeted applications",
		zap.Int("requested", len(names)),
		zap.Int("resolved", len(resolved)))
	return resolved
}

// FetchMemberships fills each app's Members with full user profiles: the
// abbreviated membership records are resolved against the user directory
// index, falling back to point fetches on index misses.
func FetchMemberships(ctx context.Context, src AppUserSource, userSrc directory.UserSource, users *directory.UserIndex, apps []App, log *zap.Logger) error {
	for i := range apps {
		log.Info("Fetching application membership", zap.String("app", apps[i].Name))
		partial, err := src.FetchAppUsers(ctx, apps[i].ID)
		if err != nil {
			return cerr.Wrapf(err, "failed to fetch membership for application %s", apps[i].Name)
		}
		full, err := users.ResolveFullProfiles(ctx, userSrc, partial)
		if err != nil {
			return cerr.Wrapf(err, "failed to resolve member profiles for application %s", apps[i].Name)
		}
		apps[i].Members = full
	}
	return nil
}
