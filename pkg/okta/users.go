// pkg/okta/users.go

package okta

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// FetchAllUsers retrieves every user in the org via the paginated listing.
func (c *Client) FetchAllUsers(ctx context.Context) ([]User, error) {
	c.log.Info("Fetching all Okta users")
	first := fmt.Sprintf("%s/api/v1/users?limit=%d", c.baseURL, userPageLimit)
	users, err := fetchPaged[User](ctx, c, first)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to fetch users")
	}
	c.log.Info("Fetched Okta users", zap.Int("count", len(users)))
	return users, nil
}

// FetchUser retrieves a single user by identifier.
func (c *Client) FetchUser(ctx context.Context, userID string) (User, error) {
	c.log.Debug("Fetching user profile", zap.String("user_id", userID))
	var u User
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, userID), &u); err != nil {
		return User{}, cerr.Wrapf(err, "failed to fetch user %s", userID)
	}
	return u, nil
}

// FetchUserByEmail looks a user up by profile email. Okta treats the first
// two characters of the local part as case-significant and conventionally
// capitalized, so the query email is normalized first; without that the
// filter silently matches nothing.
func (c *Client) FetchUserByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmailCase(email)
	c.log.Info("Fetching user by email", zap.String("email", email))

	filter := url.QueryEscape(fmt.Sprintf(`profile.email eq "%s"`, email))
	full := fmt.Sprintf("%s/api/v1/users?filter=%s", c.baseURL, filter)

	var users []User
	if err := c.getJSON(ctx, full, &users); err != nil {
		return User{}, cerr.Wrapf(err, "failed to fetch user by email %s", email)
	}
	if len(users) == 0 {
		return User{}, cerr.Newf("no user found for email %s", email)
	}
	return users[0], nil
}

// NormalizeEmailCase uppercases exactly the first two characters of the
// email's local part, leaving the remainder untouched.
func NormalizeEmailCase(email string) string {
	at := strings.Index(email, "@")
	local, rest := email, ""
	if at >= 0 {
		local, rest = email[:at], email[at:]
	}
	switch {
	case len(local) >= 2:
		local = strings.ToUpper(local[:2]) + local[2:]
	case len(local) == 1:
		local = strings.ToUpper(local)
	}
	return local + rest
}
