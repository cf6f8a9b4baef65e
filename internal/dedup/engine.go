// Package dedup rejects generated content that is too similar to what an
// agent (or the community as a whole) has already produced.
package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
)

const (
	agentCorpusLimit  = 50  // newest per-agent memory entries checked
	globalCorpusLimit = 100 // newest community-wide texts checked
	memoryKeepLimit   = 100 // per-agent memory rows retained after pruning

	recentGlobalKey = "botfarm:dedup:recent"
)

// MemoryStore persists the per-agent dedup corpus.
type MemoryStore interface {
	RecentForAgent(ctx context.Context, agentID string, limit int) ([]bot.MemoryEntry, error)
	Append(ctx context.Context, entry *bot.MemoryEntry, keep int) error
	RecentGlobal(ctx context.Context, limit int) ([]string, error)
}

// Result describes the outcome of a duplicate check.
type Result struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Similarity  float64 `json:"similarity"`
	MatchedText string  `json:"matched_text,omitempty"`
}

// Engine checks candidate texts against the dedup corpus and records
// accepted texts. The redis client is optional; without it the global
// reuse check falls back to a cross-agent store query.
type Engine struct {
	store     MemoryStore
	rdb       *redis.Client
	threshold float64
	logger    *zap.Logger
}

// NewEngine creates a dedup engine with the given rejection threshold.
// A threshold of 0 uses DuplicateThreshold.
func NewEngine(store MemoryStore, rdb *redis.Client, threshold float64, logger *zap.Logger) *Engine {
	if threshold == 0 {
		threshold = DuplicateThreshold
	}
	return &Engine{store: store, rdb: rdb, threshold: threshold, logger: logger}
}

// Check scores the candidate against the agent's recent memory plus the
// most recent community-wide texts, returning the first offending match.
func (e *Engine) Check(ctx context.Context, agentID, text, category string) (*Result, error) {
	hash := TextHash(text)

	entries, err := e.store.RecentForAgent(ctx, agentID, agentCorpusLimit)
	if err != nil {
		return nil, fmt.Errorf("load agent memory: %w", err)
	}

	var best float64
	for _, m := range entries {
		if m.Hash == hash {
			return &Result{IsDuplicate: true, Similarity: 1.0, MatchedText: m.Text}, nil
		}
		score := Similarity(text, m.Text)
		if score > e.threshold {
			return &Result{IsDuplicate: true, Similarity: score, MatchedText: m.Text}, nil
		}
		if score > best {
			best = score
		}
	}

	global, err := e.recentGlobal(ctx)
	if err != nil {
		// The global check is a reuse guard, not a correctness gate.
		e.logger.Warn("global dedup corpus unavailable", zap.Error(err))
		global = nil
	}
	for _, prior := range global {
		score := Similarity(text, prior)
		if score > e.threshold {
			return &Result{IsDuplicate: true, Similarity: score, MatchedText: prior}, nil
		}
		if score > best {
			best = score
		}
	}

	return &Result{IsDuplicate: false, Similarity: best}, nil
}

// Remember stores an accepted text in the agent's memory, prunes the
// agent's corpus, and pushes the text onto the shared recent-content list.
// Rejected candidates must never be remembered.
func (e *Engine) Remember(ctx context.Context, agentID, text, category, pattern string) error {
	entry := &bot.MemoryEntry{
		AgentID:  agentID,
		Text:     text,
		Hash:     TextHash(text),
		Keywords: Keywords(text),
		Category: category,
		Pattern:  pattern,
	}
	if err := e.store.Append(ctx, entry, memoryKeepLimit); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}

	if e.rdb != nil {
		pipe := e.rdb.Pipeline()
		pipe.LPush(ctx, recentGlobalKey, text)
		pipe.LTrim(ctx, recentGlobalKey, 0, globalCorpusLimit-1)
		if _, err := pipe.Exec(ctx); err != nil {
			e.logger.Warn("push recent global text failed", zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) recentGlobal(ctx context.Context) ([]string, error) {
	if e.rdb != nil {
		texts, err := e.rdb.LRange(ctx, recentGlobalKey, 0, globalCorpusLimit-1).Result()
		if err == nil && len(texts) > 0 {
			return texts, nil
		}
		if err != nil {
			e.logger.Debug("redis recent list unavailable, falling back to store", zap.Error(err))
		}
	}
	return e.store.RecentGlobal(ctx, globalCorpusLimit)
}
