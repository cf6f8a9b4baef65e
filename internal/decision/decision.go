// Package decision selects what, if anything, an agent does this cycle.
package decision

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
)

// MaxActionsPerHour caps how often a single agent may act; at or above it
// the agent stays quiet regardless of its activity level.
const MaxActionsPerHour = 3

// Engine makes probabilistic action choices. Safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.Logger
}

// NewEngine creates a decision engine. A nil rng uses a time-seeded source;
// tests inject a seeded one for reproducibility.
func NewEngine(rng *rand.Rand, logger *zap.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Engine{rng: rng, logger: logger}
}

// Decide picks an action for the agent given its recent own activity and
// the number of currently answerable questions.
func (e *Engine) Decide(agent *bot.Agent, recentActions, answerable int) bot.Action {
	// The halved activity gate is intentional: even level 10 stays quiet
	// about half its cycles. Do not "fix" the asymmetry without product
	// sign-off.
	chance := float64(agent.ActivityLevel) / 10.0
	if e.draw() > chance*0.5 {
		return bot.ActionNone
	}

	if recentActions >= MaxActionsPerHour {
		e.logger.Debug("anti-spam cap reached",
			zap.String("agent", agent.ID),
			zap.Int("recent_actions", recentActions))
		return bot.ActionNone
	}

	r := e.draw()
	switch agent.Type {
	case bot.TypeQuestioner:
		if r < 0.7 {
			return bot.ActionAsk
		}
		return bot.ActionVote

	case bot.TypeAnswerer:
		if answerable > 0 {
			if r < 0.85 {
				return bot.ActionAnswer
			}
			return bot.ActionVote
		}
		if r < 0.2 {
			return bot.ActionVote
		}
		return bot.ActionNone

	case bot.TypeMixed:
		switch {
		case answerable > 2:
			if r < 0.6 {
				return bot.ActionAnswer
			}
			if r < 0.9 {
				return bot.ActionAsk
			}
			return bot.ActionVote
		case answerable >= 1:
			if r < 0.4 {
				return bot.ActionAnswer
			}
			if r < 0.8 {
				return bot.ActionAsk
			}
			return bot.ActionVote
		default:
			if r < 0.7 {
				return bot.ActionAsk
			}
			return bot.ActionVote
		}
	}

	return bot.ActionNone
}

func (e *Engine) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
