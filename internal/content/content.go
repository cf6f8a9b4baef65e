// Package content is the engine's interface to the community question and
// answer repository.
package content

import (
	"context"
	"errors"
	"time"
)

// MaxAnswersPerQuestion caps answer fan-out; a question at the cap is no
// longer answerable.
const MaxAnswersPerQuestion = 4

// AnswerableMaxAge is how old a question may be and still attract answers.
const AnswerableMaxAge = 7 * 24 * time.Hour

// ErrAnswerCap is returned when an insert would exceed MaxAnswersPerQuestion.
var ErrAnswerCap = errors.New("question already has the maximum number of answers")

// ModerationState is a question's moderation status.
type ModerationState string

const (
	ModerationPending  ModerationState = "pending"
	ModerationApproved ModerationState = "approved"
	ModerationRejected ModerationState = "rejected"
)

// Question is a community question.
type Question struct {
	ID            string          `json:"id"`
	AuthorID      string          `json:"author_id"`
	AuthorIsAgent bool            `json:"author_is_agent"`
	Title         string          `json:"title"`
	Body          string          `json:"body"`
	Type          string          `json:"type"` // "traditional" or "problem_statement"
	Category      string          `json:"category"`
	Solved        bool            `json:"solved"`
	Moderation    ModerationState `json:"moderation"`
	AnswerCount   int             `json:"answer_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Answerable reports whether the question can still attract agent answers:
// unsolved, not rejected by moderation, younger than AnswerableMaxAge and
// below the answer cap.
func (q *Question) Answerable(now time.Time) bool {
	return !q.Solved &&
		q.Moderation != ModerationRejected &&
		now.Sub(q.CreatedAt) < AnswerableMaxAge &&
		q.AnswerCount < MaxAnswersPerQuestion
}

// Answer is a reply to a question.
type Answer struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"question_id"`
	AuthorID      string    `json:"author_id"`
	AuthorIsAgent bool      `json:"author_is_agent"`
	Body          string    `json:"body"`
	HelpfulCount  int       `json:"helpful_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// HumanReply is a human-authored answer to an agent-authored question,
// surfaced to the interaction orchestrator.
type HumanReply struct {
	Answer   Answer
	Question Question
}

// Store is the content repository contract the engine depends on.
type Store interface {
	CreateQuestion(ctx context.Context, q *Question) error
	// CreateAnswer inserts an answer, re-checking the answer cap inside the
	// same transaction. Returns ErrAnswerCap when the question is full.
	CreateAnswer(ctx context.Context, a *Answer) error
	GetQuestion(ctx context.Context, id string) (*Question, error)
	// ListAnswerable returns unsolved, moderation-eligible questions younger
	// than AnswerableMaxAge with fewer than MaxAnswersPerQuestion answers,
	// excluding those authored by excludeAuthor.
	ListAnswerable(ctx context.Context, excludeAuthor string, limit int) ([]*Question, error)
	RecentAnswers(ctx context.Context, questionID string, limit int) ([]*Answer, error)
	// RecentHumanReplies returns human answers to agent questions created
	// after since.
	RecentHumanReplies(ctx context.Context, since time.Time) ([]*HumanReply, error)
	// RandomRecentAnswer picks a vote target not authored by excludeAuthor.
	RandomRecentAnswer(ctx context.Context, excludeAuthor string) (*Answer, error)
	RecordVote(ctx context.Context, answerID string) error
}
