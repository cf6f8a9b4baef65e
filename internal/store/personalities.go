package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/halcyard/botfarm/internal/bot"
)

// ErrNoPersonality is returned when neither the requested nor a default
// personality exists.
var ErrNoPersonality = fmt.Errorf("no personality available")

// SavePersonality upserts a personality template.
func (s *Store) SavePersonality(ctx context.Context, p *bot.Personality) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	traitsJSON, err := json.Marshal(p.Traits)
	if err != nil {
		return fmt.Errorf("marshal traits: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO personalities (id, name, tone, style, traits, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tone = EXCLUDED.tone,
			style = EXCLUDED.style,
			traits = EXCLUDED.traits,
			is_default = EXCLUDED.is_default`,
		p.ID, p.Name, p.Tone, p.Style, traitsJSON, p.IsDefault)
	if err != nil {
		return fmt.Errorf("save personality %s: %w", p.ID, err)
	}
	return nil
}

// GetPersonality returns a personality by ID.
func (s *Store) GetPersonality(ctx context.Context, id string) (*bot.Personality, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, tone, style, traits, is_default, created_at
		FROM personalities WHERE id = $1`, id)
	return scanPersonality(row)
}

// PersonalityFor resolves the personality for an agent: the assigned one,
// else the default, else ErrNoPersonality.
func (s *Store) PersonalityFor(ctx context.Context, a *bot.Agent) (*bot.Personality, error) {
	if a.PersonalityID != "" {
		p, err := s.GetPersonality(ctx, a.PersonalityID)
		if err == nil {
			return p, nil
		}
		s.logger.Warn("assigned personality missing, falling back to default")
	}

	row := s.db.QueryRow(ctx, `
		SELECT id, name, tone, style, traits, is_default, created_at
		FROM personalities WHERE is_default = true LIMIT 1`)
	p, err := scanPersonality(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPersonality
		}
		return nil, fmt.Errorf("default personality: %w", err)
	}
	return p, nil
}

// ListPersonalities returns all personality templates.
func (s *Store) ListPersonalities(ctx context.Context) ([]*bot.Personality, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, tone, style, traits, is_default, created_at
		FROM personalities ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list personalities: %w", err)
	}
	defer rows.Close()

	var list []*bot.Personality
	for rows.Next() {
		p, err := scanPersonality(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanPersonality(row rowScanner) (*bot.Personality, error) {
	var p bot.Personality
	var traitsJSON []byte
	var created time.Time
	if err := row.Scan(&p.ID, &p.Name, &p.Tone, &p.Style, &traitsJSON, &p.IsDefault, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = created
	if len(traitsJSON) > 0 {
		_ = json.Unmarshal(traitsJSON, &p.Traits)
	}
	return &p, nil
}
