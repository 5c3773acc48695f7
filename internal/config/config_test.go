package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, defaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, int64(100), cfg.Trading.LotUnit)
	assert.Equal(t, "1.5", cfg.Trading.MinRiskRewardDecimal().String())
	assert.Equal(t, "0.02", cfg.Trading.DangerBufferDecimal().String())
	assert.Equal(t, []string{"sina", "tencent"}, cfg.Market.Providers)
	assert.Equal(t, defaultCommandShards, cfg.Trading.CommandShards)
	assert.False(t, cfg.Review.Ready())
	assert.Equal(t, defaultReviewPromptPath, cfg.Review.PromptPath)
}

func TestLoad_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
trading:
  lot_unit: 100
  min_risk_reward: "2"
market:
  providers: [tencent]
`)
	path := writeFile(t, dir, "config.yaml", `
include: [base.yaml]
trading:
  min_risk_reward: "3"
storage:
  driver: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "3", cfg.Trading.MinRiskReward)
	assert.Equal(t, []string{"tencent"}, cfg.Market.Providers)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Empty(t, cfg.Storage.Path)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
review:
  enabled: true
  api_url: http://localhost:9999/v1
  model: coach
`)
	t.Setenv("TRADEJOURNAL_REVIEW_API_KEY", "sk-test")
	t.Setenv("TRADEJOURNAL_REVIEW_MODEL", "coach-v2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Review.APIKey)
	assert.Equal(t, "coach-v2", cfg.Review.Model)
	assert.True(t, cfg.Review.Ready())
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown driver", "storage:\n  driver: redis\n", "storage.driver"},
		{"mysql without dsn", "storage:\n  driver: mysql\n", "storage.dsn"},
		{"bad risk reward", "trading:\n  min_risk_reward: abc\n", "trading.min_risk_reward"},
		{"negative risk reward", "trading:\n  min_risk_reward: \"-1\"\n", "trading.min_risk_reward"},
		{"danger buffer out of range", "trading:\n  danger_buffer: \"1.2\"\n", "trading.danger_buffer"},
		{"risk fraction above one", "trading:\n  default_risk_fraction: \"2\"\n", "trading.default_risk_fraction"},
		{"unknown provider", "market:\n  providers: [yahoo]\n", "market.providers"},
		{"review without model", "review:\n  enabled: true\n  api_url: http://x\n", "review.model"},
		{"telegram without token", "notify:\n  telegram:\n    enabled: true\n", "notify.telegram"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tc.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_ReviewLogPathFollowsLogDir(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  log_path: logs/app.log
  review_log_dump: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("logs", defaultReviewLogPathSuffix), cfg.App.ReviewLogPath)
}

func TestReviewConfig_Timeout(t *testing.T) {
	r := ReviewConfig{TimeoutSeconds: 3}
	assert.Equal(t, "3s", r.Timeout().String())
}
