// pkg/okta/apps.go

package okta

import (
	"context"
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// FetchAllApplications retrieves every application in the org.
func (c *Client) FetchAllApplications(ctx context.Context) ([]Application, error) {
	c.log.Info("Fetching all Okta applications")
	first := fmt.Sprintf("%s/api/v1/apps?limit=%d", c.baseURL, appPageLimit)
	apps, err := fetchPaged[Application](ctx, c, first)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to fetch applications")
	}
	c.log.Info("Fetched Okta applications", zap.Int("count", len(apps)))
	return apps, nil
}

// FetchAppUsers retrieves an application's membership. The records are
// abbreviated user profiles; callers resolve them against the user
// directory index.
func (c *Client) FetchAppUsers(ctx context.Context, appID string) ([]User, error) {
	c.log.Debug("Fetching application membership", zap.String("app_id", appID))
	first := fmt.Sprintf("%s/api/v1/apps/%s/users?limit=%d", c.baseURL, appID, appPageLimit)
	users, err := fetchPaged[User](ctx, c, first)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to fetch users for application %s", appID)
	}
	return users, nil
}
