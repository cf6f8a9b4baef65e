// Package interaction makes agents respond to humans who answered their
// questions, so threads feel conversational instead of one-shot.
package interaction

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
	"github.com/halcyard/botfarm/internal/content"
	"github.com/halcyard/botfarm/internal/store"
)

// AgentLookup is the slice of the agent store the orchestrator needs.
type AgentLookup interface {
	GetAgent(ctx context.Context, id string) (*bot.Agent, error)
	PersonalityFor(ctx context.Context, a *bot.Agent) (*bot.Personality, error)
	LogActivity(ctx context.Context, e *bot.ActivityEntry) error
}

// FollowUpGen produces the reply text.
type FollowUpGen interface {
	FollowUp(ctx context.Context, agent *bot.Agent, pers *bot.Personality, q *content.Question, humanText string, style bot.ResponseStyle) (string, error)
}

// Orchestrator scans recent human replies to agent questions and, with a
// probability driven by the agent's activity level and the reply itself,
// posts a follow-up in the asking agent's voice. Individual failures are
// logged and swallowed; the pass always completes.
type Orchestrator struct {
	contents content.Store
	agents   AgentLookup
	gen      FollowUpGen
	window   time.Duration
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an orchestrator scanning replies newer than window.
func New(contents content.Store, agents AgentLookup, gen FollowUpGen, window time.Duration, rng *rand.Rand, logger *zap.Logger) *Orchestrator {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Orchestrator{
		contents: contents,
		agents:   agents,
		gen:      gen,
		window:   window,
		rng:      rng,
		logger:   logger,
	}
}

// Run executes one interaction pass.
func (o *Orchestrator) Run(ctx context.Context) {
	replies, err := o.contents.RecentHumanReplies(ctx, time.Now().Add(-o.window))
	if err != nil {
		o.logger.Error("list human replies failed", zap.Error(err))
		return
	}
	if len(replies) == 0 {
		return
	}

	responded := 0
	for _, reply := range replies {
		if o.respond(ctx, reply) {
			responded++
		}
	}
	o.logger.Info("interaction pass finished",
		zap.Int("replies", len(replies)),
		zap.Int("responded", responded))
}

func (o *Orchestrator) respond(ctx context.Context, reply *content.HumanReply) bool {
	agent, err := o.agents.GetAgent(ctx, reply.Question.AuthorID)
	if err != nil {
		o.logger.Warn("asking agent not found", zap.String("agent", reply.Question.AuthorID), zap.Error(err))
		return false
	}
	if agent.Status != bot.StatusActive {
		return false
	}

	p := ResponseProbability(agent.ActivityLevel, reply.Answer.Body)
	if o.draw() > p {
		return false
	}

	style := ClassifyStyle(reply.Answer.Body)
	pers, err := o.agents.PersonalityFor(ctx, agent)
	if err != nil {
		if errors.Is(err, store.ErrNoPersonality) {
			o.logger.Warn("no personality available, skipping follow-up", zap.String("agent", agent.ID))
		} else {
			o.logger.Warn("load personality failed", zap.String("agent", agent.ID), zap.Error(err))
		}
		return false
	}

	text, err := o.gen.FollowUp(ctx, agent, pers, &reply.Question, reply.Answer.Body, style)
	if err != nil {
		o.logger.Warn("follow-up generation failed", zap.String("agent", agent.ID), zap.Error(err))
		return false
	}

	followUp := &content.Answer{
		QuestionID:    reply.Question.ID,
		AuthorID:      agent.ID,
		AuthorIsAgent: true,
		Body:          text,
	}
	if err := o.contents.CreateAnswer(ctx, followUp); err != nil {
		if errors.Is(err, content.ErrAnswerCap) {
			return false
		}
		o.logger.Warn("post follow-up failed", zap.String("agent", agent.ID), zap.Error(err))
		return false
	}

	if err := o.agents.LogActivity(ctx, &bot.ActivityEntry{
		AgentID:     agent.ID,
		Action:      bot.ActionAnswer,
		ContentID:   followUp.ID,
		ContentKind: "follow_up",
		Metadata:    string(style),
		Success:     true,
	}); err != nil {
		o.logger.Warn("log follow-up activity failed", zap.Error(err))
	}
	return true
}

func (o *Orchestrator) draw() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64()
}

// ResponseProbability scores how likely the agent is to follow up. More
// active agents respond more, longer replies pull harder, and a direct
// question almost demands an answer.
func ResponseProbability(activityLevel int, humanText string) float64 {
	p := float64(activityLevel) / 10.0 * 0.3
	if p > 0.3 {
		p = 0.3
	}
	if len(humanText) > 100 {
		p += 0.2
	}
	if len(humanText) > 300 {
		p += 0.1
	}
	if strings.Contains(humanText, "?") {
		p += 0.3
	}
	return p
}

// ClassifyStyle picks a reply style from the human text: a question gets
// answered back, concrete advice gets thanked, a short or vague reply gets a
// clarification request, anything else gets elaboration.
func ClassifyStyle(humanText string) bot.ResponseStyle {
	if strings.Contains(humanText, "?") {
		return bot.StyleQuestionBack
	}
	lower := strings.ToLower(humanText)
	for _, marker := range []string{"try ", "you should", "recommend", "suggest", "worked for me", "helped me"} {
		if strings.Contains(lower, marker) {
			return bot.StyleThank
		}
	}
	if len(strings.TrimSpace(humanText)) < 80 {
		return bot.StyleClarify
	}
	return bot.StyleElaborate
}
