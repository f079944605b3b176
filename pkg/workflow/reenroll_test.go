package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CypressSecurity/reenroll/pkg/config"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	"github.com/CypressSecurity/reenroll/pkg/workflow"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUserService struct {
	usersByEmail map[string]okta.User
	factors      map[string][]okta.Factor
	failUnenroll map[string]bool
	failEnroll   map[string]bool

	unenrolled []string
	enrolled   []string
}

func (f *fakeUserService) FetchUserByEmail(ctx context.Context, email string) (okta.User, error) {
	u, ok := f.usersByEmail[email]
	if !ok {
		return okta.User{}, cerr.Newf("no user found for email %s", email)
	}
	return u, nil
}

func (f *fakeUserService) FetchUserFactors(ctx context.Context, userID string) ([]okta.Factor, error) {
	return f.factors[userID], nil
}

func (f *fakeUserService) UnenrollFactor(ctx context.Context, userID, factorID string) error {
	if f.failUnenroll[factorID] {
		return cerr.Newf("unenroll of %s rejected", factorID)
	}
	f.unenrolled = append(f.unenrolled, factorID)
	return nil
}

func (f *fakeUserService) EnrollPushFactor(ctx context.Context, userID string) (okta.Factor, error) {
	if f.failEnroll[userID] {
		return okta.Factor{}, cerr.Newf("enrollment rejected for %s", userID)
	}
	f.enrolled = append(f.enrolled, userID)
	return okta.Factor{ID: "f-new", FactorType: "push", Provider: "OKTA"}, nil
}

type fakeNotifier struct {
	enrollmentSent   []string
	notificationSent []string
	failFor          map[string]bool
	lastDate         string
	lastSubject      string
}

func (f *fakeNotifier) SendEnrollment(ctx context.Context, dest, templatePath, attachmentPath string) error {
	if f.failFor[dest] {
		return cerr.Newf("delivery to %s failed", dest)
	}
	f.enrollmentSent = append(f.enrollmentSent, dest)
	return nil
}

func (f *fakeNotifier) SendNotification(ctx context.Context, dest, templatePath, attachmentPath, date, subject string) error {
	if f.failFor[dest] {
		return cerr.Newf("delivery to %s failed", dest)
	}
	f.notificationSent = append(f.notificationSent, dest)
	f.lastDate = date
	f.lastSubject = subject
	return nil
}

func pushFactor(id string) okta.Factor {
	return okta.Factor{ID: id, FactorType: "push", Provider: "OKTA"}
}

func testConfig(t *testing.T) *config.Options {
	t.Helper()
	dir := t.TempDir()
	enroll := filepath.Join(dir, "enroll.html")
	proactive := filepath.Join(dir, "proactive.html")
	require.NoError(t, os.WriteFile(enroll, []byte("<p>re-enroll now</p>"), 0o644))
	require.NoError(t, os.WriteFile(proactive, []byte("<p>change on &lt;DATE&gt;</p>"), 0o644))
	return &config.Options{
		EnrollmentTemplatePath: enroll,
		ProactiveTemplatePath:  proactive,
		InvalidEmailPolicy:     config.PolicyFatal,
	}
}

func rosterOf(emails ...string) *workflow.Roster {
	rows := make([]workflow.RosterRow, 0, len(emails))
	for _, e := range emails {
		rows = append(rows, workflow.RosterRow{workflow.ColUserEmail: e})
	}
	return &workflow.Roster{Header: []string{workflow.ColUserEmail}, Rows: rows}
}

func TestRun_FullPipeline(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com", Login: "A@x.com"}},
		},
		factors: map[string][]okta.Factor{
			"u1": {pushFactor("f1"), {ID: "f2", FactorType: "sms"}},
		},
	}
	notifier := &fakeNotifier{}
	engine := workflow.NewEngine(users, notifier, testConfig(t), zaptest.NewLogger(t))

	results, err := engine.Run(context.Background(), rosterOf("A@x.com"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, workflow.StateNotified, res.State)
	assert.Equal(t, "u1", res.UserID)
	assert.True(t, res.PushFactorExisted)
	assert.Equal(t, []string{"f1"}, users.unenrolled, "only the push factor is removed")
	assert.Equal(t, []string{"u1"}, users.enrolled)
	assert.Equal(t, []string{"A@x.com"}, notifier.enrollmentSent)
}

func TestRun_UnenrollFailureIsIsolated(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com"}},
		},
		factors: map[string][]okta.Factor{
			"u1": {pushFactor("f1"), pushFactor("f2"), pushFactor("f3")},
		},
		failUnenroll: map[string]bool{"f2": true},
	}
	notifier := &fakeNotifier{}
	engine := workflow.NewEngine(users, notifier, testConfig(t), zaptest.NewLogger(t))

	results, err := engine.Run(context.Background(), rosterOf("A@x.com"))
	require.NoError(t, err, "a single factor's unenroll failure must not abort the user")
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, []string{"f1", "f3"}, users.unenrolled)
	require.Len(t, res.Unenrolled, 2)
	require.Len(t, res.FailedUnenroll, 1)
	assert.Equal(t, "f2", res.FailedUnenroll[0].ID)
	assert.Equal(t, workflow.StateNotified, res.State, "pipeline continues past the failed factor")
}

func TestRun_EnrollFailureFailsUserNotBatch(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com"}},
			"B@x.com": {ID: "u2", Profile: okta.Profile{Email: "B@x.com"}},
		},
		factors: map[string][]okta.Factor{
			"u1": {pushFactor("f1")},
			"u2": {pushFactor("f2")},
		},
		failEnroll: map[string]bool{"u1": true},
	}
	notifier := &fakeNotifier{}
	engine := workflow.NewEngine(users, notifier, testConfig(t), zaptest.NewLogger(t))

	results, err := engine.Run(context.Background(), rosterOf("A@x.com", "B@x.com"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, workflow.StateFailed, results[0].State)
	assert.Error(t, results[0].Err)
	assert.Equal(t, workflow.StateNotified, results[1].State)
	assert.Equal(t, []string{"B@x.com"}, notifier.enrollmentSent, "no email for the failed user")
}

func TestRun_DeliveryFailureIsBatchFatal(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com"}},
			"B@x.com": {ID: "u2", Profile: okta.Profile{Email: "B@x.com"}},
		},
		factors: map[string][]okta.Factor{"u1": {pushFactor("f1")}},
	}
	notifier := &fakeNotifier{failFor: map[string]bool{"A@x.com": true}}
	engine := workflow.NewEngine(users, notifier, testConfig(t), zaptest.NewLogger(t))

	results, err := engine.Run(context.Background(), rosterOf("A@x.com", "B@x.com"))
	require.Error(t, err)
	assert.Len(t, results, 0, "batch stops at the delivery failure")
}

func TestRun_InvalidEmailPolicy(t *testing.T) {
	t.Run("fatal by default", func(t *testing.T) {
		engine := workflow.NewEngine(&fakeUserService{}, &fakeNotifier{}, testConfig(t), zaptest.NewLogger(t))
		_, err := engine.Run(context.Background(), rosterOf("not-an-email"))
		require.Error(t, err)
		assert.True(t, reenroll_err.IsExpectedUserError(err))
	})

	t.Run("skip policy records failure and continues", func(t *testing.T) {
		users := &fakeUserService{
			usersByEmail: map[string]okta.User{
				"B@x.com": {ID: "u2", Profile: okta.Profile{Email: "B@x.com"}},
			},
			factors: map[string][]okta.Factor{"u2": {pushFactor("f2")}},
		}
		cfg := testConfig(t)
		cfg.InvalidEmailPolicy = config.PolicySkip
		engine := workflow.NewEngine(users, &fakeNotifier{}, cfg, zaptest.NewLogger(t))

		results, err := engine.Run(context.Background(), rosterOf("not-an-email", "B@x.com"))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, workflow.StateFailed, results[0].State)
		assert.Equal(t, workflow.StateNotified, results[1].State)
	})
}

func TestRun_MissingTemplateFailsBeforeAnyWork(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com"}},
		},
	}
	cfg := testConfig(t)
	cfg.EnrollmentTemplatePath = filepath.Join(t.TempDir(), "missing.html")
	engine := workflow.NewEngine(users, &fakeNotifier{}, cfg, zaptest.NewLogger(t))

	_, err := engine.Run(context.Background(), rosterOf("A@x.com"))
	require.Error(t, err)
	assert.True(t, reenroll_err.IsExpectedUserError(err))
	assert.Empty(t, users.unenrolled, "no factor is touched without a template")
}

func TestRun_UserWithoutPushFactorStillReenrolls(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com"}},
		},
	}
	notifier := &fakeNotifier{}
	engine := workflow.NewEngine(users, notifier, testConfig(t), zaptest.NewLogger(t))

	results, err := engine.Run(context.Background(), rosterOf("A@x.com"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].PushFactorExisted)
	assert.Empty(t, users.unenrolled)
	assert.Equal(t, []string{"u1"}, users.enrolled, "a fresh factor is enrolled either way")
	assert.Equal(t, workflow.StateNotified, results[0].State)
}

func TestNotify(t *testing.T) {
	users := &fakeUserService{
		usersByEmail: map[string]okta.User{
			"A@x.com": {ID: "u1", Profile: okta.Profile{Email: "A@x.com"}},
		},
	}
	notifier := &fakeNotifier{}
	engine := workflow.NewEngine(users, notifier, testConfig(t), zaptest.NewLogger(t))

	err := engine.Notify(context.Background(), rosterOf("A@x.com"), "2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"A@x.com"}, notifier.notificationSent)
	assert.Equal(t, "2026-04-01", notifier.lastDate)
	assert.Equal(t, "[FUTURE ACTION REQUIRED] Action will be required on 2026-04-01", notifier.lastSubject)
}

func TestNotify_FetchFailureIsFatal(t *testing.T) {
	engine := workflow.NewEngine(&fakeUserService{}, &fakeNotifier{}, testConfig(t), zaptest.NewLogger(t))
	err := engine.Notify(context.Background(), rosterOf("ghost@x.com"), "2026-04-01")
	require.Error(t, err)
}
