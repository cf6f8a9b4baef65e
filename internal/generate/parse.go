package generate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// QuestionDraft is the structured output of a question generation attempt.
type QuestionDraft struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

var (
	fenceRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	titleRe    = regexp.MustCompile(`(?im)^\s*(?:title|question)\s*[:：]\s*(.+)$`)
	bodyRe     = regexp.MustCompile(`(?ims)^\s*(?:body|details?)\s*[:：]\s*(.+)$`)
	greetingRe = regexp.MustCompile(`(?i)^\s*(?:hi there|hello there|hey there|hi|hello|hey|greetings)\s*[,!.:\s]+`)
)

// parseQuestion accepts either well-formed JSON (optionally fenced) or raw
// text, falling back to regex extraction. A response with no usable title
// is a parse failure, not a crash.
func parseQuestion(raw string) (*QuestionDraft, error) {
	candidate := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}

	var draft QuestionDraft
	if err := json.Unmarshal([]byte(candidate), &draft); err == nil {
		draft.Title = strings.TrimSpace(draft.Title)
		draft.Body = strings.TrimSpace(draft.Body)
		if draft.Title != "" {
			return &draft, nil
		}
	}

	// Fallback: labeled lines, then first-line/rest.
	if m := titleRe.FindStringSubmatch(candidate); m != nil {
		draft.Title = strings.TrimSpace(m[1])
		if b := bodyRe.FindStringSubmatch(candidate); b != nil {
			draft.Body = strings.TrimSpace(b[1])
		}
		return &draft, nil
	}

	lines := strings.SplitN(candidate, "\n", 2)
	title := strings.TrimSpace(lines[0])
	if title == "" || strings.HasPrefix(title, "{") {
		return nil, fmt.Errorf("unparseable generation output")
	}
	draft.Title = strings.Trim(title, `"“”`)
	if len(lines) > 1 {
		draft.Body = strings.TrimSpace(lines[1])
	}
	return &draft, nil
}

// stripGreeting removes a leading salutation from an answer. The prompt
// already forbids greetings; this is the structural backstop. A response
// that was nothing but a greeting strips to "", which the retry loop
// treats as a rejected attempt.
func stripGreeting(s string) string {
	out := greetingRe.ReplaceAllString(strings.TrimSpace(s), "")
	if out == "" {
		return ""
	}
	// Re-capitalize if the greeting took the sentence opener with it.
	r := []rune(out)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
