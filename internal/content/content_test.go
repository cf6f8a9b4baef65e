package content

import (
	"testing"
	"time"
)

func TestQuestionAnswerable(t *testing.T) {
	now := time.Now()
	base := Question{
		AuthorID:   "human-1",
		Moderation: ModerationApproved,
		CreatedAt:  now.Add(-time.Hour),
	}

	tests := []struct {
		name   string
		mutate func(q *Question)
		want   bool
	}{
		{"open question", func(q *Question) {}, true},
		{"pending moderation", func(q *Question) { q.Moderation = ModerationPending }, true},
		{"one answer below the cap", func(q *Question) { q.AnswerCount = MaxAnswersPerQuestion - 1 }, true},
		{"exactly at the answer cap", func(q *Question) { q.AnswerCount = MaxAnswersPerQuestion }, false},
		{"over the answer cap", func(q *Question) { q.AnswerCount = MaxAnswersPerQuestion + 1 }, false},
		{"solved", func(q *Question) { q.Solved = true }, false},
		{"rejected by moderation", func(q *Question) { q.Moderation = ModerationRejected }, false},
		{"older than the answerable window", func(q *Question) { q.CreatedAt = now.Add(-AnswerableMaxAge - time.Minute) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			if got := q.Answerable(now); got != tt.want {
				t.Errorf("Answerable() = %v, want %v", got, tt.want)
			}
		})
	}
}
