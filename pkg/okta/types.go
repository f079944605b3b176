// pkg/okta/types.go

package okta

// Profile holds the subset of an Okta user profile the campaign reads.
// Display name is optional; fallback resolution happens once, in the
// aggregator, not at every call site.
type Profile struct {
	Login       string `json:"login,omitempty"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// User is an Okta user record. Application-membership listings return
// abbreviated records carrying only the identifier; those get resolved to
// full profiles through the user directory index.
type User struct {
	ID      string  `json:"id"`
	Status  string  `json:"status,omitempty"`
	Profile Profile `json:"profile"`
}

// Label returns the best human-readable handle for log lines: email when
// the profile is populated, otherwise the identifier.
func (u User) Label() string {
	if u.Profile.Email != "" {
		return u.Profile.Email
	}
	return u.ID
}

// FactorProfile carries the non-sensitive factor profile fields. The Okta
// payload also includes a "keys" member with credential key material; it is
// deliberately not declared here, so it can never be retained, logged or
// written to a snapshot.
type FactorProfile struct {
	CredentialID string `json:"credentialId,omitempty"`
	DeviceType   string `json:"deviceType,omitempty"`
	Name         string `json:"name,omitempty"`
	Platform     string `json:"platform,omitempty"`
	Version      string `json:"version,omitempty"`
}

// Factor is an enrolled authentication factor.
type Factor struct {
	ID         string        `json:"id"`
	FactorType string        `json:"factorType"`
	Provider   string        `json:"provider"`
	Status     string        `json:"status,omitempty"`
	Created    string        `json:"created,omitempty"`
	Profile    FactorProfile `json:"profile,omitempty"`
}

// IsPush reports whether this is a push-approval factor.
func (f Factor) IsPush() bool {
	return f.FactorType == "push" || f.FactorType == "okta_verify_push"
}

// DisplayName is the nested display-name wrapper Okta uses on device
// records.
type DisplayName struct {
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// Device is an Okta device record. Users and ManagementStatus are derived
// from the per-device owner listing, not part of the device resource
// itself.
type Device struct {
	ID                  string      `json:"id"`
	Status              string      `json:"status,omitempty"`
	ResourceDisplayName DisplayName `json:"resourceDisplayName"`
	ManagementStatus    string      `json:"managementStatus,omitempty"`
	Users               []User      `json:"users,omitempty"`
}

// DeviceUserLink is one entry of a device's owner listing.
type DeviceUserLink struct {
	ManagementStatus string `json:"managementStatus,omitempty"`
	Created          string `json:"created,omitempty"`
	User             User   `json:"user"`
}

// Application is an Okta application. Label is the display name operators
// put in the target-apps CSV.
type Application struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status,omitempty"`
}
