package campaign_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CypressSecurity/reenroll/pkg/campaign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadTargetAppsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.csv")
	require.NoError(t, os.WriteFile(path, []byte("AppName\nPayroll\n\nWiki\n"), 0o644))

	names, err := campaign.LoadTargetAppsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Payroll", "Wiki"}, names)
}

func TestLoadTargetAppsCSV_MissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.csv")
	require.NoError(t, os.WriteFile(path, []byte("Application\nPayroll\n"), 0o644))

	_, err := campaign.LoadTargetAppsCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AppName")
}

func TestWriteCandidatesCSV(t *testing.T) {
	t.Chdir(t.TempDir())

	candidates := []campaign.Candidate{{
		UserID:                   "u1",
		UserName:                 "a@x.com",
		UserFullName:             "Ada Lovelace",
		UserEmail:                "a@x.com",
		OktaVerifyExistingFactor: true,
		AppsInScope:              []string{"Payroll", "Wiki"},
	}}

	filename, err := campaign.WriteCandidatesCSV(candidates, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, time.Now().Format("2006-01-02")+"_"))
	assert.True(t, strings.HasSuffix(filename, campaign.CandidatesCSVName))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"userId", "userName", "userFullName", "userEmail", "oktaVerifyExistingFactor", "appsInScope"}, rows[0])
	assert.Equal(t, []string{"u1", "a@x.com", "Ada Lovelace", "a@x.com", "true", "Payroll;Wiki"}, rows[1])
}
