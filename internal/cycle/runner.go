package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/halcyard/botfarm/internal/bot"
	"github.com/halcyard/botfarm/internal/content"
	"github.com/halcyard/botfarm/internal/generate"
	"github.com/halcyard/botfarm/internal/schedule"
	"github.com/halcyard/botfarm/internal/store"
)

// coin rewards per successful action
const (
	coinsPerQuestion = 2
	coinsPerAnswer   = 3
	coinsPerVote     = 1
)

// AgentDirectory is the slice of the agent store the runner needs.
type AgentDirectory interface {
	ListActiveAgents(ctx context.Context) ([]*bot.Agent, error)
	GetAgent(ctx context.Context, id string) (*bot.Agent, error)
	SchedulesFor(ctx context.Context, agentID string) ([]bot.ScheduleRule, error)
	CountActivitySince(ctx context.Context, agentID string, since time.Time) (int, error)
	LogActivity(ctx context.Context, e *bot.ActivityEntry) error
	BumpStats(ctx context.Context, id string, d store.StatDelta) error
	PersonalityFor(ctx context.Context, a *bot.Agent) (*bot.Personality, error)
}

// ContentGen produces agent-authored text.
type ContentGen interface {
	Question(ctx context.Context, agent *bot.Agent, pers *bot.Personality) (*generate.QuestionDraft, error)
	Answer(ctx context.Context, agent *bot.Agent, pers *bot.Personality, q *content.Question, prior []*content.Answer) (string, error)
}

// Decider picks an action for one agent.
type Decider interface {
	Decide(agent *bot.Agent, recentActions, answerable int) bot.Action
}

// SecondPass runs after the main fan-out; the interaction orchestrator
// implements it.
type SecondPass interface {
	Run(ctx context.Context)
}

// Summary aggregates one cycle's outcome.
type Summary struct {
	Agents    int           `json:"agents"`
	Acted     int           `json:"acted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Runner executes cycles: for every active agent it checks the schedule and
// the anti-spam cap, asks the decision engine for an action and carries the
// action out. Agents run concurrently under a bounded semaphore; one agent's
// failure or panic never touches the others.
type Runner struct {
	agents      AgentDirectory
	contents    content.Store
	decider     Decider
	gen         ContentGen
	second      SecondPass
	workers     int64
	crossChance float64
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRunner wires a cycle runner. workers bounds concurrent agents;
// crossChance is the per-cycle probability of the extra agent-to-agent pass.
// second may be nil.
func NewRunner(agents AgentDirectory, contents content.Store, decider Decider, gen ContentGen, second SecondPass, workers int, crossChance float64, rng *rand.Rand, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Runner{
		agents:      agents,
		contents:    contents,
		decider:     decider,
		gen:         gen,
		second:      second,
		workers:     int64(workers),
		crossChance: crossChance,
		rng:         rng,
		logger:      logger,
	}
}

// RunCycle processes the whole population, honoring schedules.
func (r *Runner) RunCycle(ctx context.Context) *Summary {
	return r.run(ctx, false)
}

// RunAll processes the whole population ignoring schedules. Backs the manual
// bulk trigger.
func (r *Runner) RunAll(ctx context.Context) *Summary {
	return r.run(ctx, true)
}

func (r *Runner) run(ctx context.Context, ignoreSchedule bool) *Summary {
	summary := &Summary{StartedAt: time.Now()}

	agents, err := r.agents.ListActiveAgents(ctx)
	if err != nil {
		r.logger.Error("list active agents failed", zap.Error(err))
		summary.Duration = time.Since(summary.StartedAt)
		return summary
	}
	summary.Agents = len(agents)
	r.logger.Info("cycle started", zap.Int("agents", len(agents)))

	sem := semaphore.NewWeighted(r.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, agent := range agents {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(a *bot.Agent) {
			defer wg.Done()
			defer sem.Release(1)
			outcome := r.processAgent(ctx, a, ignoreSchedule)
			mu.Lock()
			switch outcome {
			case outcomeActed:
				summary.Acted++
			case outcomeFailed:
				summary.Failed++
			default:
				summary.Skipped++
			}
			mu.Unlock()
		}(agent)
	}
	wg.Wait()

	if len(agents) >= 2 && r.chance(r.crossChance) {
		r.crossAgentPass(ctx, agents)
	}

	if r.second != nil {
		r.second.Run(ctx)
	}

	summary.Duration = time.Since(summary.StartedAt)
	r.logger.Info("cycle finished",
		zap.Int("acted", summary.Acted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", summary.Duration))
	return summary
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeActed
	outcomeFailed
)

func (r *Runner) processAgent(ctx context.Context, agent *bot.Agent, ignoreSchedule bool) (out outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("agent processing panicked",
				zap.String("agent", agent.ID), zap.Any("panic", rec))
			r.logFailure(ctx, agent.ID, bot.ActionNone, fmt.Errorf("panic: %v", rec))
			out = outcomeFailed
		}
	}()

	if !ignoreSchedule {
		rules, err := r.agents.SchedulesFor(ctx, agent.ID)
		if err != nil {
			r.logger.Error("load schedules failed", zap.String("agent", agent.ID), zap.Error(err))
			r.logFailure(ctx, agent.ID, bot.ActionNone, err)
			return outcomeFailed
		}
		if !schedule.EligibleNow(rules, time.Now()) {
			return outcomeSkipped
		}
	}

	recent, err := r.agents.CountActivitySince(ctx, agent.ID, time.Now().Add(-time.Hour))
	if err != nil {
		r.logger.Error("count activity failed", zap.String("agent", agent.ID), zap.Error(err))
		r.logFailure(ctx, agent.ID, bot.ActionNone, err)
		return outcomeFailed
	}

	answerable, err := r.contents.ListAnswerable(ctx, agent.ID, 10)
	if err != nil {
		r.logger.Error("list answerable failed", zap.String("agent", agent.ID), zap.Error(err))
		r.logFailure(ctx, agent.ID, bot.ActionNone, err)
		return outcomeFailed
	}

	action := r.decider.Decide(agent, recent, len(answerable))
	if action == bot.ActionNone {
		return outcomeSkipped
	}

	if err := r.Execute(ctx, agent, action, answerable); err != nil {
		r.logger.Warn("action failed",
			zap.String("agent", agent.ID),
			zap.String("action", string(action)),
			zap.Error(err))
		return outcomeFailed
	}
	return outcomeActed
}

// Execute carries out one concrete action for the agent. Exposed so the
// manual trigger endpoint can force an action without the schedule and
// decision gates; the dedup engine still applies through the generator.
func (r *Runner) Execute(ctx context.Context, agent *bot.Agent, action bot.Action, answerable []*content.Question) error {
	var err error
	switch action {
	case bot.ActionAsk:
		err = r.ask(ctx, agent)
	case bot.ActionAnswer:
		if answerable == nil {
			answerable, err = r.contents.ListAnswerable(ctx, agent.ID, 10)
			if err != nil {
				r.logFailure(ctx, agent.ID, bot.ActionAnswer, err)
				return err
			}
		}
		err = r.answer(ctx, agent, answerable)
	case bot.ActionVote:
		err = r.vote(ctx, agent)
	case bot.ActionNone:
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return err
}

func (r *Runner) ask(ctx context.Context, agent *bot.Agent) error {
	pers, err := r.personality(ctx, agent, bot.ActionAsk)
	if err != nil {
		return err
	}
	draft, err := r.gen.Question(ctx, agent, pers)
	if err != nil {
		r.logFailure(ctx, agent.ID, bot.ActionAsk, err)
		return err
	}

	q := &content.Question{
		AuthorID:      agent.ID,
		AuthorIsAgent: true,
		Title:         draft.Title,
		Body:          draft.Body,
		Type:          draft.Type,
		Category:      draft.Category,
		Moderation:    content.ModerationPending,
	}
	if err := r.contents.CreateQuestion(ctx, q); err != nil {
		r.logFailure(ctx, agent.ID, bot.ActionAsk, err)
		return err
	}

	r.bumpAndLog(ctx, agent.ID, bot.ActionAsk, q.ID, "question",
		store.StatDelta{Questions: 1, Coins: coinsPerQuestion})
	return nil
}

func (r *Runner) answer(ctx context.Context, agent *bot.Agent, answerable []*content.Question) error {
	if len(answerable) == 0 {
		return nil
	}
	q := answerable[r.intn(len(answerable))]

	pers, err := r.personality(ctx, agent, bot.ActionAnswer)
	if err != nil {
		return err
	}
	prior, err := r.contents.RecentAnswers(ctx, q.ID, content.MaxAnswersPerQuestion)
	if err != nil {
		r.logFailure(ctx, agent.ID, bot.ActionAnswer, err)
		return err
	}

	body, err := r.gen.Answer(ctx, agent, pers, q, prior)
	if err != nil {
		r.logFailure(ctx, agent.ID, bot.ActionAnswer, err)
		return err
	}

	a := &content.Answer{
		QuestionID:    q.ID,
		AuthorID:      agent.ID,
		AuthorIsAgent: true,
		Body:          body,
	}
	if err := r.contents.CreateAnswer(ctx, a); err != nil {
		if errors.Is(err, content.ErrAnswerCap) {
			// Another agent filled the question between listing and insert.
			r.logger.Debug("question filled up mid-cycle", zap.String("question", q.ID))
			return nil
		}
		r.logFailure(ctx, agent.ID, bot.ActionAnswer, err)
		return err
	}

	r.bumpAndLog(ctx, agent.ID, bot.ActionAnswer, a.ID, "answer",
		store.StatDelta{Answers: 1, Coins: coinsPerAnswer})
	return nil
}

func (r *Runner) vote(ctx context.Context, agent *bot.Agent) error {
	target, err := r.contents.RandomRecentAnswer(ctx, agent.ID)
	if err != nil {
		r.logFailure(ctx, agent.ID, bot.ActionVote, err)
		return err
	}
	if target == nil {
		return nil
	}
	if err := r.contents.RecordVote(ctx, target.ID); err != nil {
		r.logFailure(ctx, agent.ID, bot.ActionVote, err)
		return err
	}
	if target.AuthorIsAgent {
		if err := r.agents.BumpStats(ctx, target.AuthorID, store.StatDelta{Votes: 1, Coins: coinsPerVote}); err != nil {
			r.logger.Warn("bump vote recipient failed", zap.Error(err))
		}
	}
	r.bumpAndLog(ctx, agent.ID, bot.ActionVote, target.ID, "vote", store.StatDelta{})
	return nil
}

// crossAgentPass makes one random agent answer another agent's open
// question, so threads do not depend exclusively on human traffic.
func (r *Runner) crossAgentPass(ctx context.Context, agents []*bot.Agent) {
	agent := agents[r.intn(len(agents))]

	open, err := r.contents.ListAnswerable(ctx, agent.ID, 10)
	if err != nil {
		r.logger.Warn("cross-agent pass: list answerable failed", zap.Error(err))
		return
	}
	var candidates []*content.Question
	for _, q := range open {
		if q.AuthorIsAgent {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return
	}

	r.logger.Debug("cross-agent pass", zap.String("agent", agent.ID))
	if err := r.answer(ctx, agent, candidates); err != nil {
		r.logger.Warn("cross-agent pass failed", zap.Error(err))
	}
}

// personality resolves the agent's prompt personality. The store already
// falls back to the default; with no default either, the action is skipped
// and a failure entry logged.
func (r *Runner) personality(ctx context.Context, agent *bot.Agent, action bot.Action) (*bot.Personality, error) {
	pers, err := r.agents.PersonalityFor(ctx, agent)
	if err != nil {
		if errors.Is(err, store.ErrNoPersonality) {
			r.logger.Warn("no personality available, skipping action", zap.String("agent", agent.ID))
		}
		r.logFailure(ctx, agent.ID, action, err)
		return nil, err
	}
	return pers, nil
}

func (r *Runner) bumpAndLog(ctx context.Context, agentID string, action bot.Action, contentID, kind string, d store.StatDelta) {
	if err := r.agents.BumpStats(ctx, agentID, d); err != nil {
		r.logger.Warn("bump stats failed", zap.String("agent", agentID), zap.Error(err))
	}
	if err := r.agents.LogActivity(ctx, &bot.ActivityEntry{
		AgentID:     agentID,
		Action:      action,
		ContentID:   contentID,
		ContentKind: kind,
		Success:     true,
	}); err != nil {
		r.logger.Warn("log activity failed", zap.String("agent", agentID), zap.Error(err))
	}
}

func (r *Runner) logFailure(ctx context.Context, agentID string, action bot.Action, cause error) {
	if err := r.agents.LogActivity(ctx, &bot.ActivityEntry{
		AgentID:  agentID,
		Action:   action,
		Metadata: cause.Error(),
		Success:  false,
	}); err != nil {
		r.logger.Warn("log failure activity failed", zap.String("agent", agentID), zap.Error(err))
	}
}

func (r *Runner) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *Runner) chance(p float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < p
}
