package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres implements Store on a shared pgx connection pool.
type Postgres struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a postgres-backed content store.
func NewPostgres(db *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// CreateQuestion inserts a new question. Agent questions start in the
// pending moderation state.
func (s *Postgres) CreateQuestion(ctx context.Context, q *Question) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Moderation == "" {
		q.Moderation = ModerationPending
	}
	q.CreatedAt = time.Now()

	_, err := s.db.Exec(ctx, `
		INSERT INTO questions (id, author_id, author_is_agent, title, body, type, category, solved, moderation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)`,
		q.ID, q.AuthorID, q.AuthorIsAgent, q.Title, q.Body, q.Type, q.Category, string(q.Moderation), q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// CreateAnswer inserts an answer after re-checking the answer cap under a
// row lock on the question, so concurrent agents cannot exceed the cap.
func (s *Postgres) CreateAnswer(ctx context.Context, a *Answer) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists string
	if err := tx.QueryRow(ctx,
		`SELECT id FROM questions WHERE id = $1 FOR UPDATE`, a.QuestionID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lock question %s: %w", a.QuestionID, err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM answers WHERE question_id = $1`, a.QuestionID,
	).Scan(&count); err != nil {
		return fmt.Errorf("count answers: %w", err)
	}
	if count >= MaxAnswersPerQuestion {
		return ErrAnswerCap
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO answers (id, question_id, author_id, author_is_agent, body, helpful_count, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		a.ID, a.QuestionID, a.AuthorID, a.AuthorIsAgent, a.Body, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return tx.Commit(ctx)
}

// GetQuestion returns one question with its current answer count.
func (s *Postgres) GetQuestion(ctx context.Context, id string) (*Question, error) {
	row := s.db.QueryRow(ctx, `
		SELECT q.id, q.author_id, q.author_is_agent, q.title, q.body, q.type, q.category,
		       q.solved, q.moderation, q.created_at,
		       (SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id)
		FROM questions q WHERE q.id = $1`, id)
	return scanQuestion(row)
}

// ListAnswerable returns questions still open to agent answers.
func (s *Postgres) ListAnswerable(ctx context.Context, excludeAuthor string, limit int) ([]*Question, error) {
	now := time.Now()
	cutoff := now.Add(-AnswerableMaxAge)
	rows, err := s.db.Query(ctx, `
		SELECT q.id, q.author_id, q.author_is_agent, q.title, q.body, q.type, q.category,
		       q.solved, q.moderation, q.created_at,
		       (SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id) AS answer_count
		FROM questions q
		WHERE q.solved = false
		  AND q.moderation IN ('approved', 'pending')
		  AND q.created_at > $1
		  AND q.author_id != $2
		  AND (SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id) < $3
		ORDER BY q.created_at DESC
		LIMIT $4`,
		cutoff, excludeAuthor, MaxAnswersPerQuestion, limit)
	if err != nil {
		return nil, fmt.Errorf("query answerable: %w", err)
	}
	defer rows.Close()

	var questions []*Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		// The WHERE clause narrows the scan; Answerable is the predicate.
		if !q.Answerable(now) {
			continue
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// RecentAnswers returns the newest answers to a question.
func (s *Postgres) RecentAnswers(ctx context.Context, questionID string, limit int) ([]*Answer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, question_id, author_id, author_is_agent, body, helpful_count, created_at
		FROM answers WHERE question_id = $1
		ORDER BY created_at DESC LIMIT $2`, questionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// RecentHumanReplies returns human answers posted to agent questions since
// the given time.
func (s *Postgres) RecentHumanReplies(ctx context.Context, since time.Time) ([]*HumanReply, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.question_id, a.author_id, a.author_is_agent, a.body, a.helpful_count, a.created_at,
		       q.id, q.author_id, q.author_is_agent, q.title, q.body, q.type, q.category,
		       q.solved, q.moderation, q.created_at
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE a.author_is_agent = false
		  AND q.author_is_agent = true
		  AND a.created_at > $1
		ORDER BY a.created_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("query human replies: %w", err)
	}
	defer rows.Close()

	var replies []*HumanReply
	for rows.Next() {
		var r HumanReply
		var qMod string
		if err := rows.Scan(
			&r.Answer.ID, &r.Answer.QuestionID, &r.Answer.AuthorID, &r.Answer.AuthorIsAgent,
			&r.Answer.Body, &r.Answer.HelpfulCount, &r.Answer.CreatedAt,
			&r.Question.ID, &r.Question.AuthorID, &r.Question.AuthorIsAgent,
			&r.Question.Title, &r.Question.Body, &r.Question.Type, &r.Question.Category,
			&r.Question.Solved, &qMod, &r.Question.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan human reply: %w", err)
		}
		r.Question.Moderation = ModerationState(qMod)
		replies = append(replies, &r)
	}
	return replies, rows.Err()
}

// RandomRecentAnswer picks one of the 20 newest answers not authored by the
// given agent as a vote target.
func (s *Postgres) RandomRecentAnswer(ctx context.Context, excludeAuthor string) (*Answer, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, question_id, author_id, author_is_agent, body, helpful_count, created_at
		FROM (
			SELECT * FROM answers WHERE author_id != $1
			ORDER BY created_at DESC LIMIT 20
		) recent
		ORDER BY random() LIMIT 1`, excludeAuthor)

	var a Answer
	if err := row.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.AuthorIsAgent,
		&a.Body, &a.HelpfulCount, &a.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("pick vote target: %w", err)
	}
	return &a, nil
}

// RecordVote increments an answer's helpful counter.
func (s *Postgres) RecordVote(ctx context.Context, answerID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE answers SET helpful_count = helpful_count + 1 WHERE id = $1`, answerID)
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var mod string
	if err := row.Scan(&q.ID, &q.AuthorID, &q.AuthorIsAgent, &q.Title, &q.Body,
		&q.Type, &q.Category, &q.Solved, &mod, &q.CreatedAt, &q.AnswerCount); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	q.Moderation = ModerationState(mod)
	return &q, nil
}

func scanAnswers(rows pgx.Rows) ([]*Answer, error) {
	var answers []*Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.AuthorIsAgent,
			&a.Body, &a.HelpfulCount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, &a)
	}
	return answers, rows.Err()
}
