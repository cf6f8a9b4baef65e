package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halcyard/botfarm/internal/bot"
)

const agentColumns = `id, name, handle, type, status, activity_level, expertise,
	COALESCE(personality_id::text, ''), COALESCE(model, ''),
	questions_posted, answers_posted, helpful_votes, coins_earned, last_active_at,
	created_at, updated_at`

// SaveAgent upserts an agent.
func (s *Store) SaveAgent(ctx context.Context, a *bot.Agent) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now()
	var personalityID *string
	if a.PersonalityID != "" {
		personalityID = &a.PersonalityID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO agents (id, name, handle, type, status, activity_level, expertise, personality_id, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			handle = EXCLUDED.handle,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			activity_level = EXCLUDED.activity_level,
			expertise = EXCLUDED.expertise,
			personality_id = EXCLUDED.personality_id,
			model = EXCLUDED.model,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.Name, a.Handle, string(a.Type), string(a.Status),
		a.ActivityLevel, a.Expertise, personalityID, a.Model, now,
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent retrieves a single agent by ID.
func (s *Store) GetAgent(ctx context.Context, id string) (*bot.Agent, error) {
	row := s.db.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return a, nil
}

// ListActiveAgents returns all agents eligible to participate in cycles.
func (s *Store) ListActiveAgents(ctx context.Context) ([]*bot.Agent, error) {
	return s.listAgents(ctx, `WHERE status = 'active'`)
}

// ListAgents returns every agent regardless of status.
func (s *Store) ListAgents(ctx context.Context) ([]*bot.Agent, error) {
	return s.listAgents(ctx, ``)
}

func (s *Store) listAgents(ctx context.Context, where string) ([]*bot.Agent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+agentColumns+` FROM agents `+where+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*bot.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// SetAgentStatus toggles an agent's lifecycle status.
func (s *Store) SetAgentStatus(ctx context.Context, id string, status bot.Status) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("set agent status %s: %w", id, err)
	}
	return nil
}

// DeleteAgent hard-deletes an agent. Activity rows keep their agent_id as an
// orphaned reference; they are analytics data, not integrity-bound.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}

// StatDelta names the counters an action can bump.
type StatDelta struct {
	Questions int
	Answers   int
	Votes     int
	Coins     int
}

// BumpStats atomically increments an agent's counters and refreshes
// last_active_at.
func (s *Store) BumpStats(ctx context.Context, id string, d StatDelta) error {
	_, err := s.db.Exec(ctx, `
		UPDATE agents SET
			questions_posted = questions_posted + $1,
			answers_posted = answers_posted + $2,
			helpful_votes = helpful_votes + $3,
			coins_earned = coins_earned + $4,
			last_active_at = NOW(),
			updated_at = NOW()
		WHERE id = $5`,
		d.Questions, d.Answers, d.Votes, d.Coins, id)
	if err != nil {
		return fmt.Errorf("bump stats %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*bot.Agent, error) {
	var a bot.Agent
	var typ, status string
	var lastActive *time.Time
	if err := row.Scan(&a.ID, &a.Name, &a.Handle, &typ, &status, &a.ActivityLevel,
		&a.Expertise, &a.PersonalityID, &a.Model,
		&a.Stats.QuestionsPosted, &a.Stats.AnswersPosted, &a.Stats.HelpfulVotes,
		&a.Stats.CoinsEarned, &lastActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	a.Type = bot.AgentType(typ)
	a.Status = bot.Status(status)
	a.Stats.LastActiveAt = lastActive
	return &a, nil
}
