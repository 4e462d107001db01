package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, TransportSocket, cfg.Hub.Transport)
	assert.Equal(t, cfg.Broker.URL, cfg.Hub.URL)
	assert.Equal(t, "/topic/block", cfg.Broker.BlockTopic)
	assert.Equal(t, 5*time.Second, cfg.Broker.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Hub.ConnectTimeout)
	assert.Equal(t, 9600, cfg.Hub.Serial.Baud)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "agent.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
broker:
  url: ws://broker:61614/ws
  write_timeout: 2s
hub:
  transport: serial
  connect_timeout: 3s
  serial:
    port: /dev/ttyACM0
    baud: 115200
nats:
  url: nats://nats:4222
  subject_prefix: lab.wedo
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, TransportSerial, cfg.Hub.Transport)
	assert.Equal(t, 3*time.Second, cfg.Hub.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.Broker.WriteTimeout)
	assert.Equal(t, "/dev/ttyACM0", cfg.Hub.Serial.Port)
	assert.Equal(t, 115200, cfg.Hub.Serial.Baud)
	assert.Equal(t, "ws://broker:61614/ws", cfg.Hub.URL)
	assert.Equal(t, "lab.wedo", cfg.NATS.SubjectPrefix)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEDO_LOG_LEVEL", "warn")
	t.Setenv("WEDO_SERIAL_PORT", "/dev/ttyUSB1")
	t.Setenv("NATS_URL", "nats://other:4222")

	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, TransportSerial, cfg.Hub.Transport)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Hub.Serial.Port)
	assert.Equal(t, "nats://other:4222", cfg.NATS.URL)
}

func TestValidation(t *testing.T) {
	_, err := Parse([]byte("hub:\n  transport: serial\n"))
	assert.ErrorContains(t, err, "hub.serial.port")

	_, err = Parse([]byte("hub:\n  transport: bluetooth\n"))
	assert.ErrorContains(t, err, "unknown hub transport")

	_, err = Parse([]byte("log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "unknown log format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDotEnv(t *testing.T) {
	var dir = t.TempDir()
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	var path = filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("WEDO_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("WEDO_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("WEDO_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("WEDO_TEST_DOTENV"))
}
