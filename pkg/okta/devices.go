// pkg/okta/devices.go

package okta

import (
	"context"
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// FetchAllDevices retrieves every device registered in the org.
func (c *Client) FetchAllDevices(ctx context.Context) ([]Device, error) {
	c.log.Info("Fetching all Okta devices")
	first := fmt.Sprintf("%s/api/v1/devices?limit=%d", c.baseURL, devicePageLimit)
	devices, err := fetchPaged[Device](ctx, c, first)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to fetch devices")
	}
	c.log.Info("Fetched Okta devices", zap.Int("count", len(devices)))
	return devices, nil
}

// FetchDeviceUsers retrieves the users associated with one device.
func (c *Client) FetchDeviceUsers(ctx context.Context, deviceID string) ([]DeviceUserLink, error) {
	var links []DeviceUserLink
	url := fmt.Sprintf("%s/api/v1/devices/%s/users", c.baseURL, deviceID)
	if err := c.getJSON(ctx, url, &links); err != nil {
		return nil, cerr.Wrapf(err, "failed to fetch users for device %s", deviceID)
	}
	return links, nil
}
