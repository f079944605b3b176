// pkg/okta/factors.go

package okta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// FetchUserFactors lists a user's enrolled factors. A 404 from the factors
// sub-resource means the user has no factors and is not an error; every
// other failure class is.
func (c *Client) FetchUserFactors(ctx context.Context, userID string) ([]Factor, error) {
	var factors []Factor
	url := fmt.Sprintf("%s/api/v1/users/%s/factors", c.baseURL, userID)
	if err := c.getJSON(ctx, url, &factors); err != nil {
		if IsNotFound(err) {
			c.log.Warn("No factors found for user", zap.String("user_id", userID))
			return nil, nil
		}
		return nil, cerr.Wrapf(err, "failed to fetch factors for user %s", userID)
	}
	return factors, nil
}

// UnenrollFactor force-removes one enrolled factor from a user.
func (c *Client) UnenrollFactor(ctx context.Context, userID, factorID string) error {
	c.log.Info("Unenrolling factor",
		zap.String("user_id", userID),
		zap.String("factor_id", factorID))

	url := fmt.Sprintf("%s/api/v1/users/%s/factors/%s", c.baseURL, userID, factorID)
	if _, _, err := c.do(ctx, http.MethodDelete, url, nil); err != nil {
		return cerr.Wrapf(err, "failed to unenroll factor %s for user %s", factorID, userID)
	}
	return nil
}

// EnrollPushFactor enrolls one fresh Okta Verify push factor for the user.
// The activate=true call makes Okta generate the activation artifact (QR
// payload) server-side; the campaign mails static instructions instead of
// consuming it.
func (c *Client) EnrollPushFactor(ctx context.Context, userID string) (Factor, error) {
	c.log.Info("Enrolling new push factor", zap.String("user_id", userID))

	url := fmt.Sprintf("%s/api/v1/users/%s/factors?activate=true", c.baseURL, userID)
	payload := map[string]string{
		"factorType": "push",
		"provider":   "OKTA",
	}

	data, _, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return Factor{}, cerr.Wrapf(err, "failed to enroll push factor for user %s", userID)
	}

	var f Factor
	if err := json.Unmarshal(data, &f); err != nil {
		return Factor{}, cerr.Wrapf(err, "failed to decode enrollment response for user %s", userID)
	}
	return f, nil
}
