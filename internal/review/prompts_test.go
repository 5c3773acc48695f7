package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuiltinRender(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)

	system, user, err := r.Render(PromptTradeReview, TradeData{Symbol: "600519", EmotionalState: "冷静"})
	require.NoError(t, err)
	assert.Contains(t, system, "交易教练")
	assert.Contains(t, user, "标的：600519")
	assert.Contains(t, user, "情绪标签：冷静")

	_, user, err = r.Render(PromptEntryChallenge, challengeData{Symbol: "AAPL", Logic: "突破"})
	require.NoError(t, err)
	assert.Contains(t, user, "当前价格：未知")

	_, _, err = r.Render("nope", nil)
	assert.Error(t, err)
}

func TestRegistry_Validate(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)

	cases := []struct {
		name string
		id   string
		doc  string
		ok   bool
	}{
		{"valid review", PromptTradeReview, `{"score": 72, "comment": "止损执行到位"}`, true},
		{"string score", PromptTradeReview, `{"score": "72", "comment": "ok"}`, true},
		{"score above range", PromptTradeReview, `{"score": 120, "comment": "ok"}`, false},
		{"missing comment", PromptTradeReview, `{"score": 50}`, false},
		{"not json", PromptTradeReview, `score: 50`, false},
		{"valid risks", PromptEntryChallenge, `["追高", "放量不足"]`, true},
		{"empty risks", PromptEntryChallenge, `[]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Validate(tc.id, tc.doc)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidOutput)
			}
		})
	}
}

const minimalPrompts = `prompts:
  trade_review:
    version: 2
    system: coach
    user: "{{.Symbol}} v%d"
  entry_challenge:
    system: bear
    user: "{{.Symbol}}"
`

func TestRegistry_FileLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalPrompts), 0o644))

	r, err := NewRegistry(path)
	require.NoError(t, err)
	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, 2, snap.Prompts[PromptTradeReview].Version)
	assert.Equal(t, 1, snap.Prompts[PromptEntryChallenge].Version)

	// 无 schema 时只要求合法 JSON
	assert.NoError(t, r.Validate(PromptTradeReview, `{"anything": true}`))

	// 非法内容不会覆盖当前快照
	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  trade_review:\n    bogus: 1\n"), 0o644))
	assert.Error(t, r.reload())
	_, user, err := r.Render(PromptTradeReview, TradeData{Symbol: "X"})
	require.NoError(t, err)
	assert.Equal(t, "X v%d", user)
}

func TestRegistry_RejectsIncompleteFile(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown field":  "prompts:\n  trade_review:\n    user: x\n    extra: y\n",
		"missing prompt": "prompts:\n  trade_review:\n    user: x\n",
		"empty template": "prompts:\n  trade_review:\n    user: ''\n  entry_challenge:\n    user: y\n",
		"bad template":   "prompts:\n  trade_review:\n    user: '{{.Symbol'\n  entry_challenge:\n    user: y\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := NewRegistry(path)
			assert.Error(t, err)
		})
	}

	_, err := NewRegistry(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
