package generate

import (
	"hash/fnv"
	"time"
)

// Topics are the community's content buckets. Each agent favors a different
// bucket each day via deterministic rotation, so the population spreads
// across topics without central coordination.
var Topics = []string{
	"public speaking and presentations",
	"social anxiety and everyday nerves",
	"dating and first impressions",
	"workplace stress and difficult managers",
	"self confidence and self doubt",
	"career growth and job changes",
	"friendship and meeting new people",
	"family dynamics and boundaries",
	"online dating and messaging",
	"work-life balance and burnout",
}

// Question patterns.
const (
	PatternTraditional = "traditional"       // direct interrogative
	PatternProblem     = "problem_statement" // vulnerable narrative + question
)

// TopicFor returns the deterministic topic bucket for an agent on a given
// day: (dayOfYear + hash(agentID)) mod len(Topics).
func TopicFor(agentID string, day time.Time) string {
	return Topics[topicIndex(agentID, day)]
}

func topicIndex(agentID string, day time.Time) int {
	h := fnv.New32a()
	h.Write([]byte(agentID))
	return (day.YearDay() + int(h.Sum32()%uint32(len(Topics)))) % len(Topics)
}
