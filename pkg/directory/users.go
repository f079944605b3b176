// pkg/directory/users.go
//
// The User Directory Index: a user-id keyed map over the whole org,
// built once per run from a bulk fetch or a local snapshot, then used as
// the first tier of a two-tier profile lookup (bulk index, point fetch
// fallback).

package directory

import (
	"context"

	"github.com/CypressSecurity/reenroll/pkg/okta"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// UsersSnapshotPath is the cached full-user-list file the original
// campaign tooling wrote; kept byte-compatible so old snapshots still load.
const UsersSnapshotPath = "okta_users.json"

// UserSource is the slice of the Okta API the index needs.
type UserSource interface {
	FetchAllUsers(ctx context.Context) ([]okta.User, error)
	FetchUser(ctx context.Context, userID string) (okta.User, error)
}

// UserIndex maps user identifier to full profile. Read-mostly after
// construction.
type UserIndex struct {
	users map[string]okta.User
	log   *zap.Logger
}

// NewUserIndex wraps an existing id->user map.
func NewUserIndex(users map[string]okta.User, log *zap.Logger) *UserIndex {
	if users == nil {
		users = make(map[string]okta.User)
	}
	return &UserIndex{users: users, log: log}
}

// BuildUserIndex loads the index from snapshotPath when a non-empty
// snapshot exists; otherwise it performs a full paged fetch and persists
// the result for later runs.
func BuildUserIndex(ctx context.Context, src UserSource, snapshotPath string, log *zap.Logger) (*UserIndex, error) {
	if snapshotPath != "" {
		var cached map[string]okta.User
		ok, err := loadSnapshot(snapshotPath, &cached)
		if err != nil {
			log.Warn("Failed to load user snapshot, refetching", zap.String("path", snapshotPath), zap.Error(err))
		} else if ok && len(cached) > 0 {
			log.Info("Loaded user directory from snapshot",
				zap.String("path", snapshotPath),
				zap.Int("users", len(cached)))
			return NewUserIndex(cached, log), nil
		}
	}

	users, err := src.FetchAllUsers(ctx)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to build user directory index")
	}

	byID := make(map[string]okta.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	log.Info("Built user directory index", zap.Int("users", len(byID)))

	if snapshotPath != "" {
		if err := saveSnapshot(snapshotPath, byID); err != nil {
			log.Error("Failed to persist user snapshot", zap.String("path", snapshotPath), zap.Error(err))
		}
	}
	return NewUserIndex(byID, log), nil
}

// Len reports how many users the index holds.
func (ix *UserIndex) Len() int { return len(ix.users) }

// Lookup returns the full profile for a user identifier.
func (ix *UserIndex) Lookup(userID string) (okta.User, bool) {
	u, ok := ix.users[userID]
	return u, ok
}

// ResolveFullProfiles maps abbreviated user records (e.g. from an
// application-membership listing) to full profiles: index hit first, point
// fetch on a miss. Order is preserved.
func (ix *UserIndex) ResolveFullProfiles(ctx context.Context, src UserSource, partial []okta.User) ([]okta.User, error) {
	full := make([]okta.User, 0, len(partial))
	for _, p := range partial {
		if u, ok := ix.users[p.ID]; ok {
			full = append(full, u)
			continue
		}
		ix.log.Debug("User not in directory index, querying Okta", zap.String("user_id", p.ID))
		u, err := src.FetchUser(ctx, p.ID)
		if err != nil {
			return nil, cerr.Wrapf(err, "failed to resolve profile for user %s", p.ID)
		}
		full = append(full, u)
	}
	return full, nil
}
