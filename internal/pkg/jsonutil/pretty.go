package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty 缩进 JSON 供复盘日志阅读。保留原始键序与数字字面量（如 10.0020），
// 非 JSON 文本原样返回。
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !json.Valid([]byte(raw)) {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
