// pkg/directory/devices.go
//
// The Device Ownership Index: maps user identifier to the devices that
// user is associated with. Built by fetching every device, then fetching
// each device's owners (one sub-resource call per device, paced under the
// provider's rate limit) and inverting the relation. Absence of a user id
// from this index is the campaign's "no registered device" signal.

package directory

import (
	"context"

	"github.com/CypressSecurity/reenroll/pkg/okta"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Snapshot filenames carried over from the original tooling: the analyze
// campaign and the verification workflow historically cached under
// different names.
const (
	DevicesSnapshotPath      = "okta_device_users.json"
	VerificationSnapshotPath = "user_device_mapping.json"
)

// deviceOwnerFetchRate is calls-per-second against the device users
// sub-resource.
const deviceOwnerFetchRate = 500

// DeviceSource is the slice of the Okta API the index needs.
type DeviceSource interface {
	FetchAllDevices(ctx context.Context) ([]okta.Device, error)
	FetchDeviceUsers(ctx context.Context, deviceID string) ([]okta.DeviceUserLink, error)
}

// DeviceIndex maps user identifier to owned devices. Keys are always user
// identifiers, never device identifiers. Read-mostly after construction so
// gap analysis sees one consistent view.
type DeviceIndex struct {
	byUser map[string][]okta.Device
}

// NewDeviceIndex wraps an existing userID->devices map.
func NewDeviceIndex(byUser map[string][]okta.Device) *DeviceIndex {
	if byUser == nil {
		byUser = make(map[string][]okta.Device)
	}
	return &DeviceIndex{byUser: byUser}
}

// BuildDeviceIndex fetches every device and its owners and inverts the
// relation. A failure fetching one device's owners is logged and that
// device skipped; aborting a multi-thousand-device loop for one bad record
// would cost far more than the missing entry.
func BuildDeviceIndex(ctx context.Context, src DeviceSource, log *zap.Logger) (*DeviceIndex, error) {
	devices, err := src.FetchAllDevices(ctx)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to build device ownership index")
	}

	limiter := rate.NewLimiter(rate.Limit(deviceOwnerFetchRate), 1)
	byUser := make(map[string][]okta.Device)
	skipped := 0

	log.Info("Fetching owners for each device", zap.Int("devices", len(devices)))
	for i := range devices {
		device := devices[i]
		if err := limiter.Wait(ctx); err != nil {
			return nil, cerr.Wrap(err, "device owner fetch pacing interrupted")
		}

		log.Debug("Fetching device owners",
			zap.Int("current", i+1),
			zap.Int("total", len(devices)),
			zap.String("device", device.ResourceDisplayName.Value))

		links, err := src.FetchDeviceUsers(ctx, device.ID)
		if err != nil {
			log.Error("Failed to fetch owners for device, skipping",
				zap.String("device_id", device.ID),
				zap.Error(err))
			skipped++
			continue
		}

		if len(links) == 0 {
			device.Users = nil
			device.ManagementStatus = "N/A"
			continue
		}

		device.ManagementStatus = links[0].ManagementStatus
		for _, link := range links {
			device.Users = append(device.Users, link.User)
		}
		for _, link := range links {
			byUser[link.User.ID] = append(byUser[link.User.ID], device)
		}
	}

	log.Info("Built device ownership index",
		zap.Int("users_with_devices", len(byUser)),
		zap.Int("devices_skipped", skipped))
	return NewDeviceIndex(byUser), nil
}

// Has reports whether the user owns at least one registered device.
func (ix *DeviceIndex) Has(userID string) bool {
	_, ok := ix.byUser[userID]
	return ok
}

// Devices returns the devices owned by a user.
func (ix *DeviceIndex) Devices(userID string) []okta.Device {
	return ix.byUser[userID]
}

// Len reports how many users own at least one device.
func (ix *DeviceIndex) Len() int { return len(ix.byUser) }

// Save persists the index as a JSON snapshot.
func (ix *DeviceIndex) Save(path string) error {
	return saveSnapshot(path, ix.byUser)
}

// LoadDeviceIndex reads an index previously written by Save. The second
// return is false when the file does not exist.
func LoadDeviceIndex(path string) (*DeviceIndex, bool, error) {
	var byUser map[string][]okta.Device
	ok, err := loadSnapshot(path, &byUser)
	if err != nil || !ok {
		return nil, ok, err
	}
	return NewDeviceIndex(byUser), true, nil
}
