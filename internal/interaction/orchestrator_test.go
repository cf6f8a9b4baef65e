package interaction

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
	"github.com/halcyard/botfarm/internal/content"
)

type fakeAgents struct {
	agents   map[string]*bot.Agent
	activity []*bot.ActivityEntry
}

func (f *fakeAgents) GetAgent(_ context.Context, id string) (*bot.Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

func (f *fakeAgents) PersonalityFor(context.Context, *bot.Agent) (*bot.Personality, error) {
	return &bot.Personality{Name: "steady helper", Tone: "warm"}, nil
}

func (f *fakeAgents) LogActivity(_ context.Context, e *bot.ActivityEntry) error {
	f.activity = append(f.activity, e)
	return nil
}

type fakeContents struct {
	replies []*content.HumanReply
	posted  []*content.Answer
	postErr error
}

func (f *fakeContents) CreateQuestion(context.Context, *content.Question) error { return nil }

func (f *fakeContents) CreateAnswer(_ context.Context, a *content.Answer) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, a)
	return nil
}

func (f *fakeContents) GetQuestion(context.Context, string) (*content.Question, error) {
	return nil, errors.New("not found")
}

func (f *fakeContents) ListAnswerable(context.Context, string, int) ([]*content.Question, error) {
	return nil, nil
}

func (f *fakeContents) RecentAnswers(context.Context, string, int) ([]*content.Answer, error) {
	return nil, nil
}

func (f *fakeContents) RecentHumanReplies(context.Context, time.Time) ([]*content.HumanReply, error) {
	return f.replies, nil
}

func (f *fakeContents) RandomRecentAnswer(context.Context, string) (*content.Answer, error) {
	return nil, nil
}

func (f *fakeContents) RecordVote(context.Context, string) error { return nil }

type cannedGen struct {
	styles []bot.ResponseStyle
	err    error
}

func (g *cannedGen) FollowUp(_ context.Context, _ *bot.Agent, _ *bot.Personality, _ *content.Question, _ string, style bot.ResponseStyle) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.styles = append(g.styles, style)
	return "thanks, that helps", nil
}

// zeroSource makes every probability draw 0, so any positive probability
// passes deterministically.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

func reply(agentID, humanText string) *content.HumanReply {
	return &content.HumanReply{
		Answer:   content.Answer{ID: "ans-h", Body: humanText},
		Question: content.Question{ID: "q-1", AuthorID: agentID, AuthorIsAgent: true, Title: "t", Body: "b"},
	}
}

func TestResponseProbability(t *testing.T) {
	tests := []struct {
		name  string
		level int
		text  string
		want  float64
	}{
		{"low activity short reply", 2, "ok", 0.06},
		{"level caps at max base", 10, "ok", 0.3},
		{"long reply", 5, strings.Repeat("a", 150), 0.35},
		{"very long reply", 5, strings.Repeat("a", 350), 0.45},
		{"question pulls hard", 5, "did you try therapy?", 0.45},
		{"everything stacked", 10, strings.Repeat("a", 350) + "?", 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResponseProbability(tt.level, tt.text); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("probability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyStyle(t *testing.T) {
	tests := []struct {
		text string
		want bot.ResponseStyle
	}{
		{"Have you tried writing it down first?", bot.StyleQuestionBack},
		{"You should try box breathing before the meeting, it worked for me.", bot.StyleThank},
		{"hang in there", bot.StyleClarify},
		{strings.Repeat("When I was in a similar place I found routine mattered more than motivation. ", 2), bot.StyleElaborate},
	}
	for _, tt := range tests {
		if got := ClassifyStyle(tt.text); got != tt.want {
			t.Errorf("ClassifyStyle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestRunPostsFollowUpAsAgent(t *testing.T) {
	agents := &fakeAgents{agents: map[string]*bot.Agent{
		"a1": {ID: "a1", Status: bot.StatusActive, ActivityLevel: 10},
	}}
	contents := &fakeContents{replies: []*content.HumanReply{
		reply("a1", strings.Repeat("x", 120)+" have you tried journaling?"),
	}}
	gen := &cannedGen{}
	o := New(contents, agents, gen, time.Minute, rand.New(zeroSource{}), zap.NewNop())

	o.Run(context.Background())

	if len(contents.posted) != 1 {
		t.Fatalf("posted %d follow-ups, want 1", len(contents.posted))
	}
	posted := contents.posted[0]
	if posted.AuthorID != "a1" || !posted.AuthorIsAgent || posted.QuestionID != "q-1" {
		t.Errorf("follow-up %+v should be attributed to the asking agent on its question", posted)
	}
	if len(gen.styles) != 1 || gen.styles[0] != bot.StyleQuestionBack {
		t.Errorf("styles = %v, want the question answered back", gen.styles)
	}
	if len(agents.activity) != 1 || agents.activity[0].ContentKind != "follow_up" {
		t.Errorf("activity = %+v, want one follow_up entry", agents.activity)
	}
}

func TestRunSkipsInactiveAgents(t *testing.T) {
	agents := &fakeAgents{agents: map[string]*bot.Agent{
		"a1": {ID: "a1", Status: bot.StatusPaused, ActivityLevel: 10},
	}}
	contents := &fakeContents{replies: []*content.HumanReply{reply("a1", "long detailed reply?")}}
	o := New(contents, agents, &cannedGen{}, time.Minute, rand.New(rand.NewSource(1)), zap.NewNop())

	o.Run(context.Background())
	if len(contents.posted) != 0 {
		t.Error("paused agents must not follow up")
	}
}

func TestRunSwallowsFailures(t *testing.T) {
	agents := &fakeAgents{agents: map[string]*bot.Agent{
		"a1": {ID: "a1", Status: bot.StatusActive, ActivityLevel: 10},
	}}
	contents := &fakeContents{replies: []*content.HumanReply{
		reply("missing-agent", "anything?"),
		reply("a1", strings.Repeat("x", 120)+"?"),
	}}
	o := New(contents, agents, &cannedGen{err: errors.New("provider down")}, time.Minute,
		rand.New(zeroSource{}), zap.NewNop())

	// Must not panic or abort; both replies fail quietly.
	o.Run(context.Background())
	if len(contents.posted) != 0 {
		t.Errorf("posted = %d, want 0", len(contents.posted))
	}
}

func TestRunRespectsAnswerCap(t *testing.T) {
	agents := &fakeAgents{agents: map[string]*bot.Agent{
		"a1": {ID: "a1", Status: bot.StatusActive, ActivityLevel: 10},
	}}
	contents := &fakeContents{
		replies: []*content.HumanReply{reply("a1", strings.Repeat("x", 120)+"?")},
		postErr: content.ErrAnswerCap,
	}
	o := New(contents, agents, &cannedGen{}, time.Minute, rand.New(zeroSource{}), zap.NewNop())

	o.Run(context.Background())
	if len(agents.activity) != 0 {
		t.Error("a capped question must not record a follow-up")
	}
}
