package campaign_test

import (
	"context"
	"testing"

	"github.com/CypressSecurity/reenroll/pkg/campaign"
	"github.com/CypressSecurity/reenroll/pkg/directory"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func member(id, login string) okta.User {
	return okta.User{ID: id, Profile: okta.Profile{Login: login, Email: login}}
}

func TestResolveTargetApps(t *testing.T) {
	all := []okta.Application{
		{ID: "a1", Label: "Payroll"},
		{ID: "a2", Label: "Wiki"},
	}
	log := zaptest.NewLogger(t)

	apps := campaign.ResolveTargetApps([]string{"Payroll", "Typoed App", "Wiki"}, all, log)
	require.Len(t, apps, 2, "unmatched name is skipped, not fatal")
	assert.Equal(t, "a1", apps[0].ID)
	assert.Equal(t, "Wiki", apps[1].Name)
}

func TestResolveTargetApps_DuplicateLabelLastWins(t *testing.T) {
	all := []okta.Application{
		{ID: "old", Label: "Payroll"},
		{ID: "new", Label: "Payroll"},
	}
	apps := campaign.ResolveTargetApps([]string{"Payroll"}, all, zaptest.NewLogger(t))
	require.Len(t, apps, 1)
	assert.Equal(t, "new", apps[0].ID)
}

func TestFindUsersWithoutDevice(t *testing.T) {
	apps := []campaign.App{{
		ID:   "a1",
		Name: "Payroll",
		Members: []okta.User{
			member("u1", "a@x.com"),
			member("u2", "b@x.com"),
			member("u3", "c@x.com"),
		},
	}}
	devices := directory.NewDeviceIndex(map[string][]okta.Device{
		"u2": {{ID: "d1"}},
	})

	campaign.FindUsersWithoutDevice(apps, devices, zaptest.NewLogger(t))

	require.Len(t, apps[0].WithoutDevice, 2)
	// Every member without a device appears, none with one does, and
	// membership order is preserved.
	assert.Equal(t, "u1", apps[0].WithoutDevice[0].ID)
	assert.Equal(t, "u3", apps[0].WithoutDevice[1].ID)
	assert.Len(t, apps[0].Members, 3, "member list untouched")
}

func TestFindUsersWithoutDevice_EmptyIndexSelectsEveryone(t *testing.T) {
	apps := []campaign.App{{
		Name:    "Payroll",
		Members: []okta.User{member("u1", "a@x.com"), member("u2", "b@x.com")},
	}}
	campaign.FindUsersWithoutDevice(apps, directory.NewDeviceIndex(nil), zaptest.NewLogger(t))
	assert.Len(t, apps[0].WithoutDevice, 2)
}

type fakeFactorSource struct {
	factors map[string][]okta.Factor
	errFor  string
}

func (f *fakeFactorSource) FetchUserFactors(ctx context.Context, userID string) ([]okta.Factor, error) {
	if userID == f.errFor {
		return nil, cerr.Newf("factor fetch failed for %s", userID)
	}
	return f.factors[userID], nil
}

func TestClassifyPushFactors(t *testing.T) {
	src := &fakeFactorSource{factors: map[string][]okta.Factor{
		"u1": {
			{ID: "f1", FactorType: "push", Provider: "OKTA"},
			{ID: "f2", FactorType: "sms", Provider: "OKTA"},
			{ID: "f3", FactorType: "okta_verify_push", Provider: "OKTA"},
		},
	}}
	log := zaptest.NewLogger(t)

	target, err := campaign.ClassifyPushFactors(context.Background(), src, member("u1", "a@x.com"), log)
	require.NoError(t, err)
	assert.True(t, target.PushFactorExists)
	assert.Len(t, target.PushFactors, 2)
	assert.Len(t, target.AllFactors, 3)

	// Zero factors is a valid classification, not an error.
	target, err = campaign.ClassifyPushFactors(context.Background(), src, member("u2", "b@x.com"), log)
	require.NoError(t, err)
	assert.False(t, target.PushFactorExists)
	assert.Empty(t, target.PushFactors)
}

func TestInspectTargets_ClassificationFailureIsFatal(t *testing.T) {
	apps := []campaign.App{{
		Name:          "Payroll",
		WithoutDevice: []okta.User{member("u1", "a@x.com")},
	}}
	src := &fakeFactorSource{errFor: "u1"}

	err := campaign.InspectTargets(context.Background(), src, apps, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestDedupeCandidates(t *testing.T) {
	u1 := campaign.TargetUser{User: member("u1", "a@x.com"), PushFactorExists: true}
	u2 := campaign.TargetUser{User: member("u2", "b@x.com"), PushFactorExists: true}

	apps := []campaign.App{
		{Name: "Payroll", Targeted: []campaign.TargetUser{u1, u2}},
		{Name: "Wiki", Targeted: []campaign.TargetUser{u1}},
	}

	out := campaign.DedupeCandidates(apps, zaptest.NewLogger(t))
	require.Len(t, out, 2)
	assert.Equal(t, "u1", out[0].UserID)
	assert.Equal(t, []string{"Payroll", "Wiki"}, out[0].AppsInScope)
	assert.Equal(t, []string{"Payroll"}, out[1].AppsInScope)
}

func TestDedupeCandidates_SetIsOrderIndependent(t *testing.T) {
	u1 := campaign.TargetUser{User: member("u1", "a@x.com")}
	u2 := campaign.TargetUser{User: member("u2", "b@x.com")}
	log := zaptest.NewLogger(t)

	forward := campaign.DedupeCandidates([]campaign.App{
		{Name: "Payroll", Targeted: []campaign.TargetUser{u1}},
		{Name: "Wiki", Targeted: []campaign.TargetUser{u2, u1}},
	}, log)
	reverse := campaign.DedupeCandidates([]campaign.App{
		{Name: "Wiki", Targeted: []campaign.TargetUser{u2, u1}},
		{Name: "Payroll", Targeted: []campaign.TargetUser{u1}},
	}, log)

	ids := func(cs []campaign.Candidate) map[string][]string {
		m := make(map[string][]string)
		for _, c := range cs {
			got := append([]string(nil), c.AppsInScope...)
			m[c.UserID] = got
		}
		return m
	}
	fwd, rev := ids(forward), ids(reverse)
	require.Len(t, fwd, 2)
	require.Len(t, rev, 2)
	assert.ElementsMatch(t, fwd["u1"], rev["u1"])
	assert.ElementsMatch(t, fwd["u2"], rev["u2"])
}

func TestDedupeCandidates_Idempotent(t *testing.T) {
	apps := []campaign.App{{
		Name:     "Payroll",
		Targeted: []campaign.TargetUser{{User: member("u1", "a@x.com"), PushFactorExists: true}},
	}}
	log := zaptest.NewLogger(t)

	first := campaign.DedupeCandidates(apps, log)
	second := campaign.DedupeCandidates(apps, log)
	assert.Equal(t, first, second)
}

func TestDedupeCandidates_FullNameFallback(t *testing.T) {
	tests := []struct {
		name    string
		profile okta.Profile
		want    string
	}{
		{
			name:    "display name wins",
			profile: okta.Profile{DisplayName: "Ada L", FirstName: "Ada", LastName: "Lovelace", Login: "al@x.com"},
			want:    "Ada L",
		},
		{
			name:    "first plus last",
			profile: okta.Profile{FirstName: "Ada", LastName: "Lovelace", Login: "al@x.com"},
			want:    "Ada Lovelace",
		},
		{
			name:    "missing last name falls to login",
			profile: okta.Profile{FirstName: "Ada", Login: "al@x.com"},
			want:    "al@x.com",
		},
		{
			name:    "bare login",
			profile: okta.Profile{Login: "al@x.com"},
			want:    "al@x.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := []campaign.App{{
				Name:     "Payroll",
				Targeted: []campaign.TargetUser{{User: okta.User{ID: "u1", Profile: tt.profile}}},
			}}
			out := campaign.DedupeCandidates(apps, zaptest.NewLogger(t))
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].UserFullName)
		})
	}
}
