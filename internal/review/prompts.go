package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"tradejournal/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	PromptTradeReview    = "trade_review"
	PromptEntryChallenge = "entry_challenge"
)

// Prompt 单个提示词模板：system 原样发送，user 使用 text/template 渲染，
// schema 用于校验模型返回的 JSON。
type Prompt struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Version     int            `yaml:"version"`
	System      string         `yaml:"system"`
	User        string         `yaml:"user"`
	Schema      map[string]any `yaml:"schema"`

	userTmpl       *template.Template
	schemaCompiled *jsonschema.Schema
}

// FileConfig 映射 prompts。
type FileConfig struct {
	Prompts map[string]Prompt `yaml:"prompts"`
}

// Snapshot 公开的提示词快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Prompts  map[string]Prompt
}

// Registry 管理复盘与质疑提示词，文件变更时自动重载。
type Registry struct {
	path string

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取提示词文件并监听更新；path 为空时使用内置提示词。
func NewRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	r := &Registry{path: path}
	if path == "" {
		cfg, err := decodePromptFile([]byte(builtinPrompts))
		if err != nil {
			return nil, err
		}
		if err := r.apply(cfg, "builtin"); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompt config failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("[review] prompt reload failed, keeping v%d: %v", r.Snapshot().Version, err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前提示词集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := Snapshot{
		Version:  r.snapshot.Version,
		LoadedAt: r.snapshot.LoadedAt,
		Prompts:  make(map[string]Prompt, len(r.snapshot.Prompts)),
	}
	for id, p := range r.snapshot.Prompts {
		out.Prompts[id] = p
	}
	return out
}

func (r *Registry) Prompt(id string) (Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Prompts[strings.TrimSpace(id)]
	return p, ok
}

// Render 渲染指定提示词，返回 system 与 user 两段文本。
func (r *Registry) Render(id string, data any) (string, string, error) {
	p, ok := r.Prompt(id)
	if !ok {
		return "", "", fmt.Errorf("unknown prompt: %s", id)
	}
	var buf bytes.Buffer
	if err := p.userTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render prompt %s: %w", id, err)
	}
	return strings.TrimSpace(p.System), strings.TrimSpace(buf.String()), nil
}

// Validate 按提示词的 schema 校验模型输出。没有 schema 时只要求是合法 JSON。
func (r *Registry) Validate(id, doc string) error {
	p, ok := r.Prompt(id)
	if !ok {
		return fmt.Errorf("unknown prompt: %s", id)
	}
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if p.schemaCompiled == nil {
		return nil
	}
	if err := p.schemaCompiled.Validate(sanitizeNumbers(v)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return nil
}

func (r *Registry) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read prompt config failed: %w", err)
	}
	cfg, err := decodePromptFile(raw)
	if err != nil {
		return err
	}
	return r.apply(cfg, filepath.Base(r.path))
}

func (r *Registry) apply(cfg FileConfig, source string) error {
	prompts := make(map[string]Prompt, len(cfg.Prompts))
	for name, p := range cfg.Prompts {
		norm, err := normalizePrompt(name, p)
		if err != nil {
			return err
		}
		prompts[norm.ID] = norm
	}
	for _, required := range []string{PromptTradeReview, PromptEntryChallenge} {
		if _, ok := prompts[required]; !ok {
			return fmt.Errorf("prompt config missing %q", required)
		}
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Prompts:  prompts,
	}
	version := r.snapshot.Version
	r.mu.Unlock()
	logger.Infof("[review] prompt registry v%d loaded %d prompts from %s", version, len(prompts), source)
	return nil
}

func normalizePrompt(name string, p Prompt) (Prompt, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	if p.Version <= 0 {
		p.Version = 1
	}
	p.Description = strings.TrimSpace(p.Description)
	if strings.TrimSpace(p.User) == "" {
		return Prompt{}, fmt.Errorf("prompt %s: user template is empty", p.ID)
	}
	tmpl, err := template.New(p.ID).Option("missingkey=zero").Parse(p.User)
	if err != nil {
		return Prompt{}, fmt.Errorf("prompt %s: parse template: %w", p.ID, err)
	}
	p.userTmpl = tmpl
	if len(p.Schema) > 0 {
		compiled, err := compileSchema(p.Schema)
		if err != nil {
			return Prompt{}, fmt.Errorf("prompt %s: compile schema: %w", p.ID, err)
		}
		p.schemaCompiled = compiled
	}
	return p, nil
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func decodePromptFile(raw []byte) (FileConfig, error) {
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse prompt config failed: %w", err)
	}
	return cfg, nil
}

// sanitizeNumbers 将字符串形式的数字转为 float64，兼容模型返回 "85" 而非 85。
func sanitizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeNumbers(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeNumbers(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	default:
		return val
	}
}
