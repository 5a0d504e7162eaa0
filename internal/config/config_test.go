package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/msinfo/pkg/catalog"
	"github.com/praetorian-inc/msinfo/pkg/session"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, catalog.DefaultEndpoints(), cfg.Data.Endpoints())
	assert.Equal(t, 30*time.Second, cfg.Data.Timeout)
	assert.Equal(t, 3, cfg.Data.Retries)
	assert.Equal(t, "info", cfg.Log.Level)

	opts := cfg.Auth.SessionOptions()
	assert.Equal(t, session.FlowBrowser, opts.Flow)
	assert.Equal(t, "organizations", opts.TenantID)
	assert.Empty(t, opts.ClientID)
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper()
	v.Set("data.applications_url", "http://localhost:8080/apps.json")
	v.Set("data.timeout", "5s")
	v.Set("auth.client_id", "11111111-2222-3333-4444-555555555555")
	v.Set("auth.flow", "device_code")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/apps.json", cfg.Data.Endpoints().Applications)
	assert.Equal(t, 5*time.Second, cfg.Data.Timeout)
	assert.Equal(t, session.FlowDeviceCode, cfg.Auth.SessionOptions().Flow)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		field string
	}{
		{"bad url", "data.delegated_permissions_url", "not a url", "DelegatedPermissionsURL"},
		{"empty url", "data.applications_url", "", "ApplicationsURL"},
		{"bad client id", "auth.client_id", "my-app", "ClientID"},
		{"bad flow", "auth.flow", "popup", "Flow"},
		{"bad level", "log.level", "trace", "Level"},
		{"too many retries", "data.retries", 50, "Retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			cfg, err := Load(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
