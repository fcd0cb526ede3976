package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaultsForOmittedFields(t *testing.T) {
	cfg, err := Parse([]byte(`
robots:
  user_agent: MyCrawler
`))
	require.NoError(t, err)

	assert.Equal(t, "MyCrawler", cfg.Robots.UserAgent)
	assert.Equal(t, Default().Arena, cfg.Arena)
	assert.Equal(t, 200*time.Millisecond, cfg.HTTP.TickTimeout.Get())
}

func TestParseOverridesNestedDurations(t *testing.T) {
	cfg, err := Parse([]byte(`
http:
  read_timeout: 5s
  tick_timeout: 50ms
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout.Get())
	assert.Equal(t, 50*time.Millisecond, cfg.HTTP.TickTimeout.Get())
}

func TestParseRejectsUnparsableDuration(t *testing.T) {
	_, err := Parse([]byte(`
http:
  read_timeout: "not-a-duration"
`))
	assert.Error(t, err)
}

func TestValidateRejectsEmptyUserAgent(t *testing.T) {
	cfg := Default()
	cfg.Robots.UserAgent = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMaxBelowBaseCapacity(t *testing.T) {
	cfg := Default()
	cfg.Arena.FactoryMaxCapacity = cfg.Arena.FactoryBaseCapacity - 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestLoadReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
robots:
  user_agent: DiskAgent
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DiskAgent", cfg.Robots.UserAgent)
}

func TestLoadReportsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
