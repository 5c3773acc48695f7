package logger

import (
	"io"
	"log"
	"strings"
	"sync"

	"tradejournal/internal/pkg/jsonutil"
)

var (
	reviewMu          sync.Mutex
	reviewLog         *log.Logger
	reviewDumpPayload bool
)

// SetReviewWriter 设置复盘模型对话的独立输出，nil 表示关闭。
func SetReviewWriter(w io.Writer) {
	reviewMu.Lock()
	defer reviewMu.Unlock()
	if w == nil {
		reviewLog = nil
		return
	}
	reviewLog = log.New(w, "", log.LstdFlags)
}

func EnableReviewPayloadDump(enabled bool) {
	reviewMu.Lock()
	reviewDumpPayload = enabled
	reviewMu.Unlock()
}

type reviewSection struct {
	Title string
	Body  string
}

func logReview(kind, model, ref string, sections []reviewSection) {
	reviewMu.Lock()
	out := reviewLog
	reviewMu.Unlock()
	if out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[REVIEW]")
	for _, tag := range []string{kind, model, ref} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	out.Print(b.String())
}

// LogReviewRequest 记录发给复盘模型的提示词；ref 通常是 execution id。
func LogReviewRequest(model, ref, systemPrompt, userPrompt, payload string) {
	sections := []reviewSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	reviewMu.Lock()
	dump := reviewDumpPayload
	reviewMu.Unlock()
	if dump && strings.TrimSpace(payload) != "" {
		sections = append(sections, reviewSection{Title: "PAYLOAD", Body: jsonutil.Pretty(payload)})
	}
	logReview("request", model, ref, sections)
}

func LogReviewResponse(model, ref, raw string) {
	logReview("response", model, ref, []reviewSection{{Title: "RAW", Body: jsonutil.Pretty(raw)}})
}
