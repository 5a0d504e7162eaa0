// Package config holds the msinfo configuration as read by viper from
// $HOME/.msinfo.yaml, MSINFO_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/msinfo/pkg/catalog"
	"github.com/praetorian-inc/msinfo/pkg/session"
)

type Config struct {
	Data Data `mapstructure:"data"`
	Auth Auth `mapstructure:"auth"`
	Log  Log  `mapstructure:"log"`
}

// Data locates the published catalog documents.
type Data struct {
	ApplicationsURL           string        `mapstructure:"applications_url"            validate:"required,url"`
	ApplicationPermissionsURL string        `mapstructure:"application_permissions_url" validate:"required,url"`
	DelegatedPermissionsURL   string        `mapstructure:"delegated_permissions_url"   validate:"required,url"`
	Timeout                   time.Duration `mapstructure:"timeout"                     validate:"gte=0"`
	// Retries is the number of retries for transient HTTP failures.
	Retries int `mapstructure:"retries" validate:"gte=0,lte=10"`
}

// Auth configures interactive sign-in. An empty client id falls back to the
// identity library's default public client.
type Auth struct {
	ClientID    string `mapstructure:"client_id"    validate:"omitempty,uuid"`
	TenantID    string `mapstructure:"tenant_id"`
	RedirectURL string `mapstructure:"redirect_url" validate:"omitempty,url"`
	Flow        string `mapstructure:"flow"         validate:"oneof=browser device_code"`
}

type Log struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	// File, when set, receives JSON logs in addition to the console.
	File string `mapstructure:"file"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.applications_url", catalog.DefaultApplicationsURL)
	v.SetDefault("data.application_permissions_url", catalog.DefaultApplicationPermissionsURL)
	v.SetDefault("data.delegated_permissions_url", catalog.DefaultDelegatedPermissionsURL)
	v.SetDefault("data.timeout", 30*time.Second)
	v.SetDefault("data.retries", 3)
	v.SetDefault("auth.tenant_id", "organizations")
	v.SetDefault("auth.flow", string(session.FlowBrowser))
	v.SetDefault("log.level", "info")
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func (d Data) Endpoints() catalog.Endpoints {
	return catalog.Endpoints{
		Applications:           d.ApplicationsURL,
		ApplicationPermissions: d.ApplicationPermissionsURL,
		DelegatedPermissions:   d.DelegatedPermissionsURL,
	}
}

func (a Auth) SessionOptions() session.Options {
	return session.Options{
		ClientID:    a.ClientID,
		TenantID:    a.TenantID,
		RedirectURL: a.RedirectURL,
		Flow:        session.Flow(a.Flow),
	}
}
