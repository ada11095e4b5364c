package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/herratomsiili/portwatch/internal/reconciler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 300*time.Millisecond, cfg.PageDelay)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, reconciler.RemoveMissing, cfg.Policy())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "portwatch")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`function_key = "abc"`), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.FunctionKey)
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
api_base_url = "  https://portman.example.net  "
function_key = " fn "
auth_token = "tok"
ais_url = "https://ais.example.net/locations"
page_delay = "500ms"
poll_interval = "30s"
max_pages = 40
drain_timeout = "2m"
request_timeout = "5s"
requests_per_second = 2.5
missing_policy = "expire"
stale_after = "15m"
log_level = "debug"
log_file = "~/portwatch.log"
metrics_addr = "127.0.0.1:9464"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		APIBaseURL:        "https://portman.example.net",
		FunctionKey:       "fn",
		AuthToken:         "tok",
		AISURL:            "https://ais.example.net/locations",
		PageDelay:         500 * time.Millisecond,
		PollInterval:      30 * time.Second,
		MaxPages:          40,
		DrainTimeout:      2 * time.Minute,
		RequestTimeout:    5 * time.Second,
		RequestsPerSecond: 2.5,
		MissingPolicy:     "expire",
		StaleAfter:        15 * time.Minute,
		LogLevel:          "debug",
		LogFile:           filepath.Join(home, "portwatch.log"),
		MetricsAddr:       "127.0.0.1:9464",
	}, cfg)
	assert.Equal(t, reconciler.ExpireMissing, cfg.Policy())
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, `
api_base_url = "   "
page_delay = ""
missing_policy = ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ZeroRequestsPerSecondDisablesLimit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, `requests_per_second = 0`))
	require.NoError(t, err)
	assert.Zero(t, cfg.RequestsPerSecond)
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	_, err := Load(writeConfig(t, `api_base_url = [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_BadDurationsReportedTogether(t *testing.T) {
	_, err := Load(writeConfig(t, `
page_delay = "soon"
poll_interval = "often"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_delay")
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.AISURL = "not-a-url"
	cfg.PageDelay = -time.Second
	cfg.PollInterval = 0
	cfg.MaxPages = -1
	cfg.RequestTimeout = 0
	cfg.RequestsPerSecond = -2
	cfg.MissingPolicy = "forget"
	cfg.StaleAfter = 0
	cfg.LogLevel = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 9)
	for _, want := range []string{"ais_url", "page_delay", "poll_interval", "max_pages", "request_timeout", "requests_per_second", "forget", "stale_after", "log_level"} {
		assert.True(t, strings.Contains(err.Error(), want), "error should mention %s: %v", want, err)
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	_, err := Load(writeConfig(t, `missing_policy = "sometimes"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "a/b"), got)
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	_, err := expandPath("   ")
	assert.Error(t, err)
}
