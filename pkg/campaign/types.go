// pkg/campaign/types.go

package campaign

import "github.com/CypressSecurity/reenroll/pkg/okta"

// App is a targeted application as it moves through the campaign stages:
// resolved id, fetched membership, derived member subsets.
type App struct {
	ID   string
	Name string

	// Members is the full resolved membership, in listing order.
	Members []okta.User
	// WithoutDevice is the subset of Members absent from the device
	// ownership index, in membership order.
	WithoutDevice []okta.User
	// Targeted is the subset of WithoutDevice that has an existing push
	// factor to reset.
	Targeted []TargetUser
}

// TargetUser is a member flagged for re-enrollment together with the
// factor classification that flagged it.
type TargetUser struct {
	okta.User

	PushFactorExists bool
	// PushFactors are the matching push factors in listing order, key
	// material already stripped.
	PushFactors []okta.Factor
	// AllFactors is the complete factor list, kept for audit.
	AllFactors []okta.Factor
}

// Candidate is one deduplicated row of the re-enrollment roster.
type Candidate struct {
	UserID                   string
	UserName                 string
	UserFullName             string
	UserEmail                string
	OktaVerifyExistingFactor bool
	// AppsInScope is the set of application names that caused inclusion,
	// in first-seen order; always non-empty.
	AppsInScope []string
}
