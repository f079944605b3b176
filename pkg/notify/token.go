// pkg/notify/token.go

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// expirySkew is subtracted from the advertised token lifetime so a token
// is never used within its final moments.
const expirySkew = 30 * time.Second

// token is one client-credentials grant.
type token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	fetched     time.Time
}

// expired reports whether the token's computed expiry has passed.
func (t *token) expired(now time.Time) bool {
	return !now.Before(t.fetched.Add(time.Duration(t.ExpiresIn)*time.Second - expirySkew))
}

// TokenSource fetches and caches a Microsoft Graph OAuth token via the
// client-credentials grant, refreshing when the cached token expires.
type TokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	log          *zap.Logger
	now          func() time.Time

	cached *token
}

// NewTokenSource builds a token source for the given tenant token URL.
func NewTokenSource(tokenURL, clientID, clientSecret string, log *zap.Logger) *TokenSource {
	return &TokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          log,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, fetching a fresh one when the cache
// is empty or expired.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if ts.cached != nil && !ts.cached.expired(ts.now()) {
		return ts.cached.AccessToken, nil
	}
	if ts.cached != nil {
		ts.log.Debug("OAuth token expired, fetching a new one")
	}

	tok, err := ts.fetch(ctx)
	if err != nil {
		return "", err
	}
	ts.cached = tok
	return tok.AccessToken, nil
}

func (ts *TokenSource) fetch(ctx context.Context) (*token, error) {
	ts.log.Info("Fetching OAuth access token for MS Graph API")

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.clientID},
		"client_secret": {ts.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, cerr.Wrap(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.http.Do(req)
	if err != nil {
		return nil, cerr.Wrapf(err, "failed to fetch OAuth token from %s", ts.tokenURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerr.Wrap(err, "failed to read token response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cerr.Newf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, cerr.Wrap(err, "failed to decode token response")
	}
	if tok.AccessToken == "" {
		return nil, cerr.New("token response carried no access_token")
	}
	tok.fetched = ts.now()

	ts.log.Info("Successfully fetched access token")
	return &tok, nil
}
