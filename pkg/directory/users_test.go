package directory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CypressSecurity/reenroll/pkg/directory"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUserSource struct {
	all         []okta.User
	byID        map[string]okta.User
	fetchAlls   int
	pointFetchs int
}

func (f *fakeUserSource) FetchAllUsers(ctx context.Context) ([]okta.User, error) {
	f.fetchAlls++
	return f.all, nil
}

func (f *fakeUserSource) FetchUser(ctx context.Context, userID string) (okta.User, error) {
	f.pointFetchs++
	u, ok := f.byID[userID]
	if !ok {
		return okta.User{}, cerr.Newf("no such user %s", userID)
	}
	return u, nil
}

func user(id, email string) okta.User {
	return okta.User{ID: id, Profile: okta.Profile{Email: email, Login: email}}
}

func TestBuildUserIndex_FetchesAndPersists(t *testing.T) {
	src := &fakeUserSource{all: []okta.User{user("u1", "a@x.com"), user("u2", "b@x.com")}}
	path := filepath.Join(t.TempDir(), "users.json")

	ix, err := directory.BuildUserIndex(context.Background(), src, path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, 1, src.fetchAlls)

	// A second build must come from the snapshot, not the API.
	ix2, err := directory.BuildUserIndex(context.Background(), src, path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, ix2.Len())
	assert.Equal(t, 1, src.fetchAlls, "snapshot hit must not refetch")

	got, ok := ix2.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "a@x.com", got.Profile.Email)
}

func TestResolveFullProfiles_IndexHitThenPointFetch(t *testing.T) {
	src := &fakeUserSource{byID: map[string]okta.User{"u9": user("u9", "late@x.com")}}
	ix := directory.NewUserIndex(map[string]okta.User{
		"u1": user("u1", "a@x.com"),
	}, zaptest.NewLogger(t))

	full, err := ix.ResolveFullProfiles(context.Background(), src, []okta.User{{ID: "u1"}, {ID: "u9"}})
	require.NoError(t, err)
	require.Len(t, full, 2)
	assert.Equal(t, "a@x.com", full[0].Profile.Email)
	assert.Equal(t, "late@x.com", full[1].Profile.Email)
	assert.Equal(t, 1, src.pointFetchs, "only the index miss hits the API")
}

func TestResolveFullProfiles_PointFetchFailureIsFatal(t *testing.T) {
	src := &fakeUserSource{}
	ix := directory.NewUserIndex(nil, zaptest.NewLogger(t))

	_, err := ix.ResolveFullProfiles(context.Background(), src, []okta.User{{ID: "ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
