package bot

import (
	"time"
)

// AgentType controls which actions an agent can be assigned.
type AgentType string

const (
	TypeQuestioner AgentType = "questioner"
	TypeAnswerer   AgentType = "answerer"
	TypeMixed      AgentType = "mixed"
)

// Status represents an agent's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Action is the outcome of a decision cycle for one agent.
type Action string

const (
	ActionAsk    Action = "ask_question"
	ActionAnswer Action = "answer_question"
	ActionVote   Action = "vote"
	ActionNone   Action = "none"
)

// ResponseStyle classifies how an agent follows up on a human reply.
type ResponseStyle string

const (
	StyleThank        ResponseStyle = "thank"
	StyleClarify      ResponseStyle = "clarify"
	StyleElaborate    ResponseStyle = "elaborate"
	StyleQuestionBack ResponseStyle = "question_back"
)

// Stats tracks an agent's accumulated activity counters.
type Stats struct {
	QuestionsPosted int        `json:"questions_posted"`
	AnswersPosted   int        `json:"answers_posted"`
	HelpfulVotes    int        `json:"helpful_votes"`
	CoinsEarned     int        `json:"coins_earned"`
	LastActiveAt    *time.Time `json:"last_active_at,omitempty"`
}

// Agent is an autonomous community resident.
type Agent struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Handle        string    `json:"handle"`
	Type          AgentType `json:"type"`
	Status        Status    `json:"status"`
	ActivityLevel int       `json:"activity_level"` // 1..10
	Expertise     []string  `json:"expertise"`      // at most 5 tags
	PersonalityID string    `json:"personality_id,omitempty"`
	Model         string    `json:"model"`
	Stats         Stats     `json:"stats"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Personality is a reusable tone/style template shared by many agents.
type Personality struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Tone      string         `json:"tone"`
	Style     string         `json:"style"`
	Traits    map[string]int `json:"traits"` // named dimensions, 1..10
	IsDefault bool           `json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
}

// ScheduleRule restricts when an agent may act. Multiple rules are OR-ed;
// an agent with no rules is always eligible.
type ScheduleRule struct {
	ID       string `json:"id"`
	AgentID  string `json:"agent_id"`
	Weekday  *int   `json:"weekday,omitempty"`     // 0=Sunday .. 6=Saturday, nil = any day
	StartMin *int   `json:"start_min,omitempty"`   // minutes from midnight, inclusive
	EndMin   *int   `json:"end_min,omitempty"`     // minutes from midnight, exclusive
	Timezone string `json:"timezone"`              // IANA name, empty = UTC
	Active   bool   `json:"active"`
}

// ActivityEntry is an immutable record of one attempted agent action.
type ActivityEntry struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Action      Action    `json:"action"`
	ContentID   string    `json:"content_id,omitempty"`
	ContentKind string    `json:"content_kind,omitempty"` // "question", "answer", "vote"
	Metadata    string    `json:"metadata,omitempty"`
	Success     bool      `json:"success"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemoryEntry is one accepted generated text in an agent's dedup corpus.
type MemoryEntry struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Text      string    `json:"text"`
	Hash      string    `json:"hash"`
	Keywords  []string  `json:"keywords"`
	Category  string    `json:"category"`
	Pattern   string    `json:"pattern"` // "traditional" or "problem_statement"
	CreatedAt time.Time `json:"created_at"`
}
