// Package jsonutil pulls a JSON document out of free-form model output,
// which often wraps it in a markdown fence or surrounding prose.
package jsonutil

import (
	"strings"
)

const codeFence = "```"

// ExtractJSON 返回文本中第一个完整的 JSON 对象或数组。
func ExtractJSON(raw string) (string, bool) {
	out, _, ok := extract(raw)
	return out, ok
}

func ExtractJSONWithOffset(raw string) (string, int, bool) {
	return extract(raw)
}

func extract(raw string) (string, int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", -1, false
	}
	if block, offset, ok := extractFromFence(raw); ok {
		return block, offset, true
	}
	return extractFirst(raw)
}

// extractFirst 以最先出现的括号决定解析对象还是数组，
// 避免对象内部的数组被误当成整个结果。
func extractFirst(raw string) (string, int, bool) {
	obj := strings.Index(raw, "{")
	arr := strings.Index(raw, "[")
	if arr != -1 && (obj == -1 || arr < obj) {
		if out, offset, ok := extractJSONArray(raw); ok {
			return out, offset, true
		}
	}
	return extractJSONObject(raw)
}

func extractFromFence(raw string) (string, int, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", -1, false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", -1, false
	}
	block := rest[:end]
	offset := start + len(codeFence)
	block = strings.TrimLeft(block, "\r\n")
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
			offset += idx + 1
		}
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return "", -1, false
	}
	if out, rel, ok := extractFirst(block); ok {
		return out, offset + rel, true
	}
	return block, offset, true
}

func extractJSONArray(raw string) (string, int, bool) {
	start := strings.Index(raw, "[")
	if start == -1 {
		return "", -1, false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}

func extractJSONObject(raw string) (string, int, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", -1, false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}
