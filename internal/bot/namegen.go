package bot

import (
	"fmt"
	"math/rand"
	"strings"
)

var firstNames = []string{
	"Maya", "Jordan", "Priya", "Leo", "Sam", "Ingrid", "Tomas", "Aisha",
	"Noah", "Elena", "Marcus", "Yuki", "Dana", "Felix", "Rosa", "Omar",
}

var lastNames = []string{
	"Hart", "Okafor", "Lindqvist", "Reyes", "Kowalski", "Tanaka", "Brennan",
	"Moreau", "Silva", "Novak", "Adeyemi", "Petrov",
}

var expertisePool = []string{
	"public speaking", "social anxiety", "dating", "career growth",
	"workplace stress", "self confidence", "friendship", "family dynamics",
	"work-life balance", "online dating",
}

var agentTypes = []AgentType{TypeQuestioner, TypeAnswerer, TypeMixed}

// RandomAgent builds an agent with a pooled name, random type, random
// activity level and 1-3 expertise tags. Used by the bulk generation
// endpoint to seed a population.
func RandomAgent(rng *rand.Rand) *Agent {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	handle := strings.ToLower(first) + strings.ToLower(last[:1]) + fmt.Sprintf("%02d", rng.Intn(100))

	tags := make([]string, 0, 3)
	for _, i := range rng.Perm(len(expertisePool))[:1+rng.Intn(3)] {
		tags = append(tags, expertisePool[i])
	}

	return &Agent{
		Name:          first + " " + last,
		Handle:        handle,
		Type:          agentTypes[rng.Intn(len(agentTypes))],
		Status:        StatusActive,
		ActivityLevel: 1 + rng.Intn(10),
		Expertise:     tags,
	}
}
