package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "ward_admin")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "ward_monitor")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Alerting.EmailCooldown)
	assert.True(t, cfg.Alerting.EmailEnabled)
	assert.True(t, cfg.Alerting.BroadcastEnabled)
	assert.Equal(t, "ward/vitals/+", cfg.MQTT.VitalsTopic)
	assert.False(t, cfg.MQTTEnabled())
	assert.False(t, cfg.LDAP.Enabled)
}

func TestLoadMissingRequiredVars(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "ward_admin")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_NAME", "ward_monitor")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALERT_EMAIL_COOLDOWN", "2m")
	t.Setenv("MQTT_BROKER", "broker.ward.local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Alerting.EmailCooldown)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, "tcp://broker.ward.local:1883", cfg.GetMQTTBroker())
}

func TestValidateRequiresCareTeamEmail(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALERT_EMAIL_ENABLED", "true")
	t.Setenv("ALERT_CARE_TEAM_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_CARE_TEAM_EMAIL")
}

func TestValidatePassesWhenEmailDisabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALERT_EMAIL_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestGetDSN(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t,
		"host=localhost port=5432 user=ward_admin password=secret dbname=ward_monitor sslmode=disable",
		cfg.GetDSN())
}
