// pkg/workflow/reenroll.go
//
// The re-enrollment engine: a per-user state machine
// Fetched -> FactorsInspected -> Unenrolled -> Enrolled -> Notified, with
// Failed reachable from any state. One user's failure never aborts the
// batch; delivery failures and bulk-fetch failures do, per the campaign's
// error policy.

package workflow

import (
	"context"
	"fmt"
	"os"

	"github.com/CypressSecurity/reenroll/pkg/campaign"
	"github.com/CypressSecurity/reenroll/pkg/config"
	"github.com/CypressSecurity/reenroll/pkg/okta"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// State is a user's position in the re-enrollment pipeline.
type State string

const (
	StateFetched          State = "Fetched"
	StateFactorsInspected State = "FactorsInspected"
	StateUnenrolled       State = "Unenrolled"
	StateEnrolled         State = "Enrolled"
	StateNotified         State = "Notified"
	StateFailed           State = "Failed"
)

// UserService is the slice of the Okta API the engine drives.
type UserService interface {
	FetchUserByEmail(ctx context.Context, email string) (okta.User, error)
	FetchUserFactors(ctx context.Context, userID string) ([]okta.Factor, error)
	UnenrollFactor(ctx context.Context, userID, factorID string) error
	EnrollPushFactor(ctx context.Context, userID string) (okta.Factor, error)
}

// Notifier is the external email collaborator.
type Notifier interface {
	SendEnrollment(ctx context.Context, dest, templatePath, attachmentPath string) error
	SendNotification(ctx context.Context, dest, templatePath, attachmentPath, date, subject string) error
}

// Result records one user's passage through the pipeline, including the
// per-factor unenroll outcomes.
type Result struct {
	Email             string
	UserID            string
	State             State
	Err               error
	PushFactorExisted bool
	Unenrolled        []okta.Factor
	FailedUnenroll    []okta.Factor
}

// Engine runs the per-user re-enrollment pipeline.
type Engine struct {
	users    UserService
	notifier Notifier
	cfg      *config.Options
	log      *zap.Logger
	validate *validator.Validate
}

// NewEngine wires the engine's collaborators.
func NewEngine(users UserService, notifier Notifier, cfg *config.Options, log *zap.Logger) *Engine {
	return &Engine{
		users:    users,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
	}
}

// Run executes the pipeline for every roster row. The enrollment template
// is validated once up front; a missing template fails the whole batch
// before any factor is touched.
func (e *Engine) Run(ctx context.Context, roster *Roster) ([]Result, error) {
	if err := requireFile(e.cfg.EnrollmentTemplatePath, "enrollment email template"); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(roster.Rows))
	for i, row := range roster.Rows {
		e.log.Info("Starting re-enrollment workflow for user",
			zap.Int("current", i+1),
			zap.Int("total", len(roster.Rows)),
			zap.String("email", row.Email()))

		res, err := e.runOne(ctx, row)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// runOne advances a single user through the state machine. The returned
// error is non-nil only for batch-fatal conditions; per-user failures are
// encoded in the Result.
func (e *Engine) runOne(ctx context.Context, row RosterRow) (Result, error) {
	res := Result{Email: row.Email()}

	if err := e.checkEmail(row.Email()); err != nil {
		if e.cfg.InvalidEmailPolicy == config.PolicySkip {
			e.log.Error("Skipping roster row with invalid email",
				zap.String("email", row.Email()),
				zap.Error(err))
			res.State = StateFailed
			res.Err = err
			return res, nil
		}
		return res, reenroll_err.NewExpectedError(err)
	}

	user, err := e.users.FetchUserByEmail(ctx, row.Email())
	if err != nil {
		return res, cerr.Wrapf(err, "failed to fetch profile for %s", row.Email())
	}
	res.UserID = user.ID
	res.State = StateFetched

	target, err := campaign.ClassifyPushFactors(ctx, e.users, user, e.log)
	if err != nil {
		return res, err
	}
	res.PushFactorExisted = target.PushFactorExists
	res.State = StateFactorsInspected

	// Unenroll every push factor; one failure never blocks the others.
	for _, f := range target.PushFactors {
		if err := e.users.UnenrollFactor(ctx, user.ID, f.ID); err != nil {
			e.log.Error("Failed to unenroll factor, continuing",
				zap.String("user", user.Label()),
				zap.String("factor_id", f.ID),
				zap.Error(err))
			res.FailedUnenroll = append(res.FailedUnenroll, f)
			continue
		}
		res.Unenrolled = append(res.Unenrolled, f)
	}
	res.State = StateUnenrolled

	if _, err := e.users.EnrollPushFactor(ctx, user.ID); err != nil {
		e.log.Error("Failed to enroll replacement push factor",
			zap.String("user", user.Label()),
			zap.Error(err))
		res.State = StateFailed
		res.Err = err
		return res, nil
	}
	res.State = StateEnrolled

	if err := e.notifier.SendEnrollment(ctx, user.Profile.Email, e.cfg.EnrollmentTemplatePath, e.cfg.AttachmentPath); err != nil {
		res.State = StateFailed
		res.Err = err
		return res, cerr.Wrapf(err, "failed to deliver enrollment email to %s", user.Profile.Email)
	}
	res.State = StateNotified

	e.log.Info("Re-enrollment workflow complete for user", zap.String("user", user.Label()))
	return res, nil
}

// Notify runs the proactive-notice workflow: no factor changes, just an
// advance-warning email carrying the change date.
func (e *Engine) Notify(ctx context.Context, roster *Roster, dateOfChange string) error {
	if err := requireFile(e.cfg.ProactiveTemplatePath, "proactive email template"); err != nil {
		return err
	}

	subject := fmt.Sprintf("[FUTURE ACTION REQUIRED] Action will be required on %s", dateOfChange)
	for i, row := range roster.Rows {
		e.log.Info("Sending proactive notification",
			zap.Int("current", i+1),
			zap.Int("total", len(roster.Rows)),
			zap.String("email", row.Email()))

		user, err := e.users.FetchUserByEmail(ctx, row.Email())
		if err != nil {
			return cerr.Wrapf(err, "failed to fetch profile for %s", row.Email())
		}
		if err := e.notifier.SendNotification(ctx, user.Profile.Email, e.cfg.ProactiveTemplatePath, e.cfg.AttachmentPath, dateOfChange, subject); err != nil {
			return cerr.Wrapf(err, "failed to deliver notification email to %s", user.Profile.Email)
		}
	}
	return nil
}

func (e *Engine) checkEmail(email string) error {
	if err := e.validate.Var(email, "required,email"); err != nil {
		return cerr.Newf("roster row carries an invalid email address %q", email)
	}
	return nil
}

func requireFile(path, what string) error {
	if path == "" {
		return reenroll_err.NewExpectedErrorf("no %s configured", what)
	}
	if _, err := os.Stat(path); err != nil {
		return reenroll_err.NewExpectedError(cerr.Wrapf(err, "the %s does not exist at %s", what, path))
	}
	return nil
}
