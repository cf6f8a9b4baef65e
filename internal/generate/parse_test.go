package generate

import (
	"testing"
)

func TestParseQuestionJSON(t *testing.T) {
	raw := `{"title": "How do I calm presentation nerves?", "body": "My hands shake every time.", "type": "traditional", "category": "public speaking"}`
	draft, err := parseQuestion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if draft.Title != "How do I calm presentation nerves?" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.Type != "traditional" || draft.Category != "public speaking" {
		t.Errorf("type/category = %q/%q", draft.Type, draft.Category)
	}
}

func TestParseQuestionFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"title\": \"Is it normal to dread Mondays?\", \"body\": \"Every Sunday night I spiral.\"}\n```"
	draft, err := parseQuestion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if draft.Title != "Is it normal to dread Mondays?" {
		t.Errorf("title = %q", draft.Title)
	}
}

func TestParseQuestionLabeledFallback(t *testing.T) {
	raw := "Title: Why do I freeze up in interviews?\nBody: I rehearse for days and still go blank."
	draft, err := parseQuestion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if draft.Title != "Why do I freeze up in interviews?" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.Body == "" {
		t.Error("body should be extracted from labeled lines")
	}
}

func TestParseQuestionFirstLineFallback(t *testing.T) {
	raw := "Why does my voice crack when I present?\nIt happens even in small meetings."
	draft, err := parseQuestion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if draft.Title != "Why does my voice crack when I present?" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.Body != "It happens even in small meetings." {
		t.Errorf("body = %q", draft.Body)
	}
}

func TestParseQuestionGarbageIsError(t *testing.T) {
	if _, err := parseQuestion("{broken json and nothing else"); err == nil {
		t.Error("expected error for unparseable output")
	}
	if _, err := parseQuestion("   "); err == nil {
		t.Error("expected error for empty output")
	}
}

func TestStripGreeting(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hi there, try slowing your breathing.", "Try slowing your breathing."},
		{"Hello! Practice in front of a mirror.", "Practice in front of a mirror."},
		{"Hey, honestly it gets easier.", "Honestly it gets easier."},
		{"Practice helps more than anything.", "Practice helps more than anything."},
		{"Hi there!", ""},
		{"Hello!", ""},
	}
	for _, tt := range tests {
		if got := stripGreeting(tt.in); got != tt.want {
			t.Errorf("stripGreeting(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	v, err := withRetry(3, func(n int) (string, bool, error) {
		calls++
		if n == 2 {
			return "ok", true, nil
		}
		return "", false, nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("got (%q, %v), want success on attempt 2", v, err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetryExhaustion(t *testing.T) {
	calls := 0
	_, err := withRetry(3, func(n int) (string, bool, error) {
		calls++
		return "", false, nil
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
