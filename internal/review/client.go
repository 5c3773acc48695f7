package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradejournal/internal/config"
	"tradejournal/internal/logger"
	"tradejournal/internal/pkg/text"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultTimeout    = 60 * time.Second
	maxResponseBytes  = 4 << 20
	maxRetryBackoff   = 8 * time.Second
	maxErrorBodyRunes = 200
	baseRetryBackoff  = 800 * time.Millisecond
	chatCompletionsEP = "/chat/completions"
)

// ChatRequest 一次对话请求；Ref 仅用于日志关联。
type ChatRequest struct {
	Ref    string
	System string
	User   string
}

// ChatModel 复盘与质疑所依赖的模型能力。
type ChatModel interface {
	Model() string
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatClient 兼容 OpenAI / DeepSeek / Qwen 的聊天补全接口。
type ChatClient struct {
	url          string
	apiKey       string
	model        string
	maxRetries   int
	extraHeaders map[string]string
	httpc        *http.Client
	backoff      func(attempt int) time.Duration
}

func NewChatClient(cfg config.ReviewConfig) *ChatClient {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &ChatClient{
		url:          normalizeBaseURL(cfg.APIURL),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        strings.TrimSpace(cfg.Model),
		maxRetries:   retries,
		extraHeaders: cfg.ExtraHeaders,
		httpc:        &http.Client{Timeout: timeout},
		backoff:      defaultBackoff,
	}
}

func (c *ChatClient) Model() string { return c.model }

// 规范化 BaseURL，兼容配置里已经写了 /chat/completions 的情况
func normalizeBaseURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		url = defaultBaseURL
	}
	url = strings.TrimSuffix(url, chatCompletionsEP)
	return url + chatCompletionsEP
}

// 0.8s, 1.6s, 3.2s ... 上限 8s
func defaultBackoff(attempt int) time.Duration {
	wait := baseRetryBackoff << attempt
	if wait > maxRetryBackoff {
		wait = maxRetryBackoff
	}
	return wait
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// Complete 发送请求并返回首个 choice 的内容；429/5xx 有限重试。
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})
	body, err := json.Marshal(chatBody{Model: c.model, Messages: messages, Temperature: 0.5})
	if err != nil {
		return "", err
	}
	logger.LogReviewRequest(c.model, req.Ref, req.System, req.User, string(body))
	logger.Debugf("[review] POST %s headers=%v ref=%s", c.url, c.maskedHeaders(), req.Ref)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		content, retryAfter, err := c.do(ctx, body)
		if err == nil {
			logger.LogReviewResponse(c.model, req.Ref, content)
			return content, nil
		}
		lastErr = err
		if retryAfter < 0 || attempt == c.maxRetries {
			break
		}
		wait := retryAfter
		if wait == 0 {
			wait = c.backoff(attempt)
		}
		logger.Warnf("[review] model call failed (attempt %d), retry in %s: %v", attempt+1, wait, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

// do 执行一次请求。retryAfter < 0 表示不可重试，0 表示使用默认退避。
func (c *ChatClient) do(ctx context.Context, body []byte) (string, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", -1, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.extraHeaders {
		httpReq.Header.Set(k, v)
	}
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", -1, ctx.Err()
		}
		return "", 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode/100 == 2 {
		if !gjson.ValidBytes(raw) {
			return "", -1, fmt.Errorf("invalid response body")
		}
		content := gjson.GetBytes(raw, "choices.0.message.content")
		if !content.Exists() {
			return "", -1, fmt.Errorf("empty choices")
		}
		return content.String(), 0, nil
	}
	msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
	if msg == "" {
		msg = strings.TrimSpace(text.Truncate(string(raw), maxErrorBodyRunes))
	}
	if msg == "" {
		msg = resp.Status
	}
	statusErr := fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil && secs > 0 {
				return "", time.Duration(secs) * time.Second, statusErr
			}
		}
		return "", 0, statusErr
	default:
		return "", -1, statusErr
	}
}

// maskedHeaders 用于日志，敏感头只保留末 4 位。
func (c *ChatClient) maskedHeaders() map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		out["Authorization"] = "Bearer " + maskSecret(c.apiKey)
	}
	for k, v := range c.extraHeaders {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = maskSecret(v)
		}
		out[k] = v
	}
	return out
}

func maskSecret(s string) string {
	if len(s) > 4 {
		return "****" + s[len(s)-4:]
	}
	return "****"
}
