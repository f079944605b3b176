// pkg/campaign/aggregate.go

package campaign

import (
	"github.com/CypressSecurity/reenroll/pkg/okta"
	"go.uber.org/zap"
)

// DedupeCandidates merges every application's targeted list into one
// deduplicated roster keyed by user identifier. A user seen under a second
// application gets that application appended to AppsInScope; non-set
// fields are last-writer-wins. Output order is first-seen.
func DedupeCandidates(apps []App, log *zap.Logger) []Candidate {
	byID := make(map[string]int)
	var out []Candidate

	for _, app := range apps {
		log.Info("Aggregating targeted users", zap.String("app", app.Name))
		for _, target := range app.Targeted {
			if idx, ok := byID[target.ID]; ok {
				out[idx].AppsInScope = append(out[idx].AppsInScope, app.Name)
				continue
			}
			byID[target.ID] = len(out)
			out = append(out, Candidate{
				UserID:                   target.ID,
				UserName:                 loginOrEmail(target.Profile),
				UserFullName:             displayName(target.Profile),
				UserEmail:                target.Profile.Email,
				OktaVerifyExistingFactor: target.PushFactorExists,
				AppsInScope:              []string{app.Name},
			})
		}
	}

	log.Info("Prepared deduplicated re-enrollment roster", zap.Int("users", len(out)))
	return out
}

// loginOrEmail prefers the login name, falling back to email.
func loginOrEmail(p okta.Profile) string {
	if p.Login != "" {
		return p.Login
	}
	return p.Email
}

// displayName resolves the full-name fallback chain exactly once:
// explicit display name, then first+last when both are present, then the
// login name.
func displayName(p okta.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.FirstName != "" && p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return loginOrEmail(p)
}
