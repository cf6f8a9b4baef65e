package decision

import (
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
)

func newTestEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)), zap.NewNop())
}

func TestQuestionerDistribution(t *testing.T) {
	eng := newTestEngine(42)
	agent := &bot.Agent{ID: "q1", Type: bot.TypeQuestioner, ActivityLevel: 10}

	const runs = 10000
	counts := map[bot.Action]int{}
	for i := 0; i < runs; i++ {
		counts[eng.Decide(agent, 0, 0)]++
	}

	quietRate := float64(counts[bot.ActionNone]) / runs
	if math.Abs(quietRate-0.5) > 0.03 {
		t.Errorf("quiet rate = %.3f, want ~0.5 (halved activity gate)", quietRate)
	}

	active := counts[bot.ActionAsk] + counts[bot.ActionVote]
	askShare := float64(counts[bot.ActionAsk]) / float64(active)
	if math.Abs(askShare-0.7) > 0.03 {
		t.Errorf("ask share among non-quiet = %.3f, want ~0.7", askShare)
	}
	if counts[bot.ActionAnswer] != 0 {
		t.Errorf("questioner should never answer, got %d", counts[bot.ActionAnswer])
	}
}

func TestLowActivityLevelMostlyQuiet(t *testing.T) {
	eng := newTestEngine(7)
	agent := &bot.Agent{ID: "q2", Type: bot.TypeQuestioner, ActivityLevel: 1}

	const runs = 10000
	var acted int
	for i := 0; i < runs; i++ {
		if eng.Decide(agent, 0, 0) != bot.ActionNone {
			acted++
		}
	}
	// Effective act rate is level/10 * 0.5 = 5%.
	rate := float64(acted) / runs
	if math.Abs(rate-0.05) > 0.01 {
		t.Errorf("act rate = %.3f, want ~0.05", rate)
	}
}

func TestAntiSpamCap(t *testing.T) {
	eng := newTestEngine(1)
	agent := &bot.Agent{ID: "q3", Type: bot.TypeQuestioner, ActivityLevel: 10}

	for i := 0; i < 10000; i++ {
		if got := eng.Decide(agent, MaxActionsPerHour, 5); got != bot.ActionNone {
			t.Fatalf("agent at the hourly cap acted anyway: %v", got)
		}
	}
}

func TestAnswererWithoutQuestions(t *testing.T) {
	eng := newTestEngine(99)
	agent := &bot.Agent{ID: "a1", Type: bot.TypeAnswerer, ActivityLevel: 10}

	const runs = 10000
	counts := map[bot.Action]int{}
	for i := 0; i < runs; i++ {
		counts[eng.Decide(agent, 0, 0)]++
	}
	if counts[bot.ActionAnswer] != 0 {
		t.Errorf("answerer with nothing answerable answered %d times", counts[bot.ActionAnswer])
	}
	if counts[bot.ActionAsk] != 0 {
		t.Errorf("answerer should never ask, got %d", counts[bot.ActionAsk])
	}
	// Non-quiet cycles split 20% vote / 80% quiet; overall vote rate ≈ 0.5*0.2.
	voteRate := float64(counts[bot.ActionVote]) / runs
	if math.Abs(voteRate-0.1) > 0.02 {
		t.Errorf("vote rate = %.3f, want ~0.10", voteRate)
	}
}

func TestAnswererWithQuestions(t *testing.T) {
	eng := newTestEngine(3)
	agent := &bot.Agent{ID: "a2", Type: bot.TypeAnswerer, ActivityLevel: 10}

	const runs = 10000
	counts := map[bot.Action]int{}
	for i := 0; i < runs; i++ {
		counts[eng.Decide(agent, 0, 3)]++
	}
	active := counts[bot.ActionAnswer] + counts[bot.ActionVote]
	answerShare := float64(counts[bot.ActionAnswer]) / float64(active)
	if math.Abs(answerShare-0.85) > 0.03 {
		t.Errorf("answer share = %.3f, want ~0.85", answerShare)
	}
}

func TestMixedBranches(t *testing.T) {
	tests := []struct {
		name       string
		answerable int
		wantAnswer float64 // expected share among non-quiet draws
		wantAsk    float64
		wantVote   float64
	}{
		{"many answerable", 5, 0.6, 0.3, 0.1},
		{"few answerable", 2, 0.4, 0.4, 0.2},
		{"none answerable", 0, 0.0, 0.7, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(11)
			agent := &bot.Agent{ID: "m1", Type: bot.TypeMixed, ActivityLevel: 10}

			const runs = 10000
			counts := map[bot.Action]int{}
			for i := 0; i < runs; i++ {
				counts[eng.Decide(agent, 0, tt.answerable)]++
			}
			active := runs - counts[bot.ActionNone]
			check := func(action bot.Action, want float64) {
				got := float64(counts[action]) / float64(active)
				if math.Abs(got-want) > 0.03 {
					t.Errorf("%s share = %.3f, want ~%.2f", action, got, want)
				}
			}
			check(bot.ActionAnswer, tt.wantAnswer)
			check(bot.ActionAsk, tt.wantAsk)
			check(bot.ActionVote, tt.wantVote)
		})
	}
}
