// Package generate builds prompts, calls the generation service, parses its
// output and enforces the dedup retry loop.
package generate

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
	"github.com/halcyard/botfarm/internal/content"
	"github.com/halcyard/botfarm/internal/dedup"
	"github.com/halcyard/botfarm/internal/provider"
)

// DupChecker is the slice of the dedup engine the generator needs.
type DupChecker interface {
	Check(ctx context.Context, agentID, text, category string) (*dedup.Result, error)
	Remember(ctx context.Context, agentID, text, category, pattern string) error
}

// Generator produces agent-authored questions, answers and follow-ups.
type Generator struct {
	completer   provider.Completer
	dedup       DupChecker
	maxAttempts int
	problemBias float64
	mu          sync.Mutex
	rng         *rand.Rand
	logger      *zap.Logger
}

// New creates a generator. maxAttempts bounds the dedup/transient retry
// loop; problemBias is the chance of the problem-statement question pattern.
func New(completer provider.Completer, dup DupChecker, maxAttempts int, problemBias float64, rng *rand.Rand, logger *zap.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		completer:   completer,
		dedup:       dup,
		maxAttempts: maxAttempts,
		problemBias: problemBias,
		rng:         rng,
		logger:      logger,
	}
}

// Question generates a fresh question for the agent. Each attempt is checked
// against the dedup engine; a duplicate triggers a new attempt with a
// re-randomized topic and pattern rather than a reworded copy of the same
// prompt. Exhausting all attempts fails the action for this cycle only.
func (g *Generator) Question(ctx context.Context, agent *bot.Agent, pers *bot.Personality) (*QuestionDraft, error) {
	return withRetry(g.maxAttempts, func(n int) (*QuestionDraft, bool, error) {
		topic := TopicFor(agent.ID, time.Now())
		if n > 1 {
			topic = Topics[g.intn(len(Topics))]
		}
		pattern := PatternTraditional
		if g.float() < g.problemBias {
			pattern = PatternProblem
		}

		raw, err := g.completer.Complete(ctx, questionSystemPrompt(agent, pers), questionUserPrompt(topic, pattern), agent.Model)
		if err != nil {
			return nil, false, fmt.Errorf("generate question: %w", err)
		}
		draft, err := parseQuestion(raw)
		if err != nil {
			return nil, false, err
		}
		if draft.Type == "" {
			draft.Type = pattern
		}
		if draft.Category == "" {
			draft.Category = topic
		}

		combined := draft.Title + "\n" + draft.Body
		res, err := g.dedup.Check(ctx, agent.ID, combined, draft.Category)
		if err != nil {
			return nil, false, err
		}
		if res.IsDuplicate {
			g.logger.Debug("question rejected as duplicate",
				zap.String("agent", agent.ID),
				zap.Float64("similarity", res.Similarity),
				zap.Int("attempt", n))
			return nil, false, nil
		}

		if err := g.dedup.Remember(ctx, agent.ID, combined, draft.Category, draft.Type); err != nil {
			g.logger.Warn("remember accepted question failed", zap.Error(err))
		}
		return draft, true, nil
	})
}

// Answer generates a short, direct answer to the question. Prior answers are
// included in the prompt so the agent does not restate them; no dedup loop
// is needed because the question context varies every call.
func (g *Generator) Answer(ctx context.Context, agent *bot.Agent, pers *bot.Personality, q *content.Question, prior []*content.Answer) (string, error) {
	return withRetry(g.maxAttempts, func(n int) (string, bool, error) {
		raw, err := g.completer.Complete(ctx, answerSystemPrompt(agent, pers), answerUserPrompt(q, prior), agent.Model)
		if err != nil {
			return "", false, fmt.Errorf("generate answer: %w", err)
		}
		answer := stripGreeting(raw)
		if answer == "" {
			return "", false, nil
		}
		return answer, true, nil
	})
}

// FollowUp generates a short reply to a human response, in the requested
// style, attributed to the original agent.
func (g *Generator) FollowUp(ctx context.Context, agent *bot.Agent, pers *bot.Personality, q *content.Question, humanText string, style bot.ResponseStyle) (string, error) {
	return withRetry(g.maxAttempts, func(n int) (string, bool, error) {
		raw, err := g.completer.Complete(ctx, answerSystemPrompt(agent, pers), followUpUserPrompt(q, humanText, style), agent.Model)
		if err != nil {
			return "", false, fmt.Errorf("generate follow-up: %w", err)
		}
		reply := stripGreeting(raw)
		if reply == "" {
			return "", false, nil
		}
		return reply, true, nil
	})
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func questionSystemPrompt(agent *bot.Agent, pers *bot.Personality) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s (@%s), a regular member of a peer-support community.\n", agent.Name, agent.Handle)
	if len(agent.Expertise) > 0 {
		fmt.Fprintf(&sb, "Your life experience centers on: %s.\n", strings.Join(agent.Expertise, ", "))
	}
	writePersonality(&sb, pers)
	sb.WriteString("Write like a real person posting from their phone. Never mention being an AI.")
	return sb.String()
}

func questionUserPrompt(topic, pattern string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Post a new question about %s.\n", topic)
	if pattern == PatternProblem {
		sb.WriteString("Open with a short, vulnerable description of a concrete situation you are dealing with, then ask the community one question about it.\n")
	} else {
		sb.WriteString("Ask a direct, specific question the community can answer from experience.\n")
	}
	sb.WriteString(`Respond with JSON only: {"title": "...", "body": "...", "type": "` + pattern + `", "category": "` + topic + `"}`)
	return sb.String()
}

func answerSystemPrompt(agent *bot.Agent, pers *bot.Personality) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s (@%s), a regular member of a peer-support community replying to a post.\n", agent.Name, agent.Handle)
	if len(agent.Expertise) > 0 {
		fmt.Fprintf(&sb, "You speak from experience with: %s.\n", strings.Join(agent.Expertise, ", "))
	}
	writePersonality(&sb, pers)
	sb.WriteString("Be short and direct. Do not open with any greeting. Never mention being an AI.")
	return sb.String()
}

func answerUserPrompt(q *content.Question, prior []*content.Answer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n%s\n", q.Title, q.Body)
	if len(prior) > 0 {
		sb.WriteString("\nAnswers already posted (do not repeat their points):\n")
		for _, a := range prior {
			fmt.Fprintf(&sb, "- %s\n", a.Body)
		}
	}
	sb.WriteString("\nWrite your answer. Plain text, no greeting, 2-5 sentences.")
	return sb.String()
}

func followUpUserPrompt(q *content.Question, humanText string, style bot.ResponseStyle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You asked: %s\n%s\n\nSomeone replied: %s\n\n", q.Title, q.Body, humanText)
	switch style {
	case bot.StyleThank:
		sb.WriteString("Thank them briefly and naturally.")
	case bot.StyleClarify:
		sb.WriteString("Ask them to clarify the part of their reply you found unclear.")
	case bot.StyleElaborate:
		sb.WriteString("Add a short detail about your situation that their reply made you think of.")
	case bot.StyleQuestionBack:
		sb.WriteString("Answer their question briefly, then continue the conversation.")
	}
	sb.WriteString(" One or two sentences, no greeting.")
	return sb.String()
}

func writePersonality(sb *strings.Builder, pers *bot.Personality) {
	if pers == nil {
		return
	}
	if pers.Tone != "" {
		fmt.Fprintf(sb, "Tone: %s.\n", pers.Tone)
	}
	if pers.Style != "" {
		fmt.Fprintf(sb, "Style: %s.\n", pers.Style)
	}
	if len(pers.Traits) > 0 {
		names := make([]string, 0, len(pers.Traits))
		for name := range pers.Traits {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s %d/10", name, pers.Traits[name]))
		}
		fmt.Fprintf(sb, "Traits: %s.\n", strings.Join(parts, ", "))
	}
}
