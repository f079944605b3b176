// pkg/config/config.go

package config

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Options is the full environment-driven configuration for a campaign run.
// Everything comes from the process environment (optionally seeded from a
// .env file in the working directory), matching how the campaign has always
// been operated.
type Options struct {
	OktaURL   string `mapstructure:"OKTA_URL" validate:"omitempty,url"`
	OktaToken string `mapstructure:"OKTA_TOKEN"`

	UserCSVPath string `mapstructure:"USER_CSV_PATH"`
	LogFileName string `mapstructure:"LOG_FILE_NAME"`

	EnrollmentTemplatePath string `mapstructure:"ENROLLMENT_EMAIL_TEMPLATE_PATH"`
	ProactiveTemplatePath  string `mapstructure:"PROACTIVE_EMAIL_TEMPLATE_PATH"`
	AttachmentPath         string `mapstructure:"ATTACHMENT_FILEPATH"`

	GraphTokenURL     string `mapstructure:"MS_OAUTH_TOKEN_URL" validate:"omitempty,url"`
	GraphClientID     string `mapstructure:"MS_OAUTH_CLIENT_ID"`
	GraphClientSecret string `mapstructure:"MS_OAUTH_CLIENT_SEC"`
	SourceEmail       string `mapstructure:"SOURCE_EMAIL" validate:"omitempty,email"`

	// InvalidEmailPolicy controls what happens when a roster row carries an
	// email that fails validation: "fatal" aborts the whole run, "skip"
	// drops just that row.
	InvalidEmailPolicy string `mapstructure:"INVALID_EMAIL_POLICY" validate:"oneof=fatal skip"`
}

const (
	PolicyFatal = "fatal"
	PolicySkip  = "skip"
)

var validate = validator.New()

// Load reads .env (if present), binds the environment and validates the
// resulting options. Per-workflow required fields are checked separately so
// that, for example, verification runs do not demand mail credentials.
func Load() (*Options, error) {
	// A missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for _, key := range []string{
		"OKTA_URL", "OKTA_TOKEN", "USER_CSV_PATH", "LOG_FILE_NAME",
		"ENROLLMENT_EMAIL_TEMPLATE_PATH", "PROACTIVE_EMAIL_TEMPLATE_PATH",
		"ATTACHMENT_FILEPATH", "MS_OAUTH_TOKEN_URL", "MS_OAUTH_CLIENT_ID",
		"MS_OAUTH_CLIENT_SEC", "SOURCE_EMAIL", "INVALID_EMAIL_POLICY",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, cerr.Wrapf(err, "failed to bind %s", key)
		}
	}
	v.SetDefault("SOURCE_EMAIL", "security@cypresssec.com")
	v.SetDefault("INVALID_EMAIL_POLICY", PolicyFatal)

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, cerr.Wrap(err, "failed to decode environment configuration")
	}
	if err := validate.Struct(&opts); err != nil {
		return nil, cerr.WithHint(err, "environment configuration is invalid")
	}
	return &opts, nil
}

// RequireOkta ensures the Okta API settings needed by every workflow are
// present.
func (o *Options) RequireOkta() error {
	if o.OktaURL == "" {
		return cerr.WithHint(cerr.New("OKTA_URL is not set"), "set OKTA_URL to your org URL, e.g. https://example.okta.com")
	}
	if o.OktaToken == "" {
		return cerr.WithHint(cerr.New("OKTA_TOKEN is not set"), "set OKTA_TOKEN to an API token with user and device admin scopes")
	}
	return nil
}

// RequireMailer ensures the Microsoft Graph settings needed to send email
// are present.
func (o *Options) RequireMailer() error {
	switch {
	case o.GraphTokenURL == "":
		return cerr.New("MS_OAUTH_TOKEN_URL is not set")
	case o.GraphClientID == "":
		return cerr.New("MS_OAUTH_CLIENT_ID is not set")
	case o.GraphClientSecret == "":
		return cerr.New("MS_OAUTH_CLIENT_SEC is not set")
	}
	return nil
}
