package generate

import (
	"testing"
	"time"
)

func TestTopicRotationDeterministic(t *testing.T) {
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	a := TopicFor("agent-1", day)
	b := TopicFor("agent-1", day)
	if a != b {
		t.Errorf("same agent and day must map to the same topic: %q vs %q", a, b)
	}
	// Time of day is irrelevant, only the date matters.
	evening := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	if TopicFor("agent-1", evening) != a {
		t.Error("topic must not change within a day")
	}
}

func TestTopicRotationCyclesAllTopics(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for d := 0; d < len(Topics); d++ {
		seen[TopicFor("agent-1", start.AddDate(0, 0, d))] = true
	}
	if len(seen) != len(Topics) {
		t.Errorf("saw %d distinct topics over %d days, want all %d", len(seen), len(Topics), len(Topics))
	}
}

func TestTopicRotationSpreadsAgents(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for _, id := range []string{"agent-a", "agent-b", "agent-c", "agent-d", "agent-e", "agent-f"} {
		seen[TopicFor(id, day)] = true
	}
	if len(seen) < 2 {
		t.Error("different agents should not all share one topic on the same day")
	}
}
