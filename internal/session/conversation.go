package session

import "time"

// Mode is the prompt configuration a conversation was created with.
type Mode string

const (
	ModeGeneral  Mode = "general"
	ModeDocument Mode = "document"
)

// Key is the tuple of parameters governing a conversation. A conversation is
// only reused while the key it was created with still equals the current one.
type Key struct {
	DocumentID   string
	Language     string
	CredentialID string
}

// HasDocument reports whether the key describes a document-grounded chat.
func (k Key) HasDocument() bool { return k.DocumentID != "" }

// Turn is one answered question.
type Turn struct {
	Question string
	Answer   string
}

// Conversation is a user's rolling multi-turn memory plus the template it
// was created with.
type Conversation struct {
	Key       Key
	Mode      Mode
	Template  string
	History   []Turn
	CreatedAt time.Time
}

// NewConversation returns an empty conversation for key.
func NewConversation(key Key, mode Mode, template string) *Conversation {
	return &Conversation{Key: key, Mode: mode, Template: template, CreatedAt: time.Now()}
}

// Append records a turn.
func (c *Conversation) Append(t Turn) {
	c.History = append(c.History, t)
}

// Trim drops the oldest turns until at most maxTurns remain and cost(history)
// is within budget. Zero limits are ignored.
func (c *Conversation) Trim(maxTurns, budget int, cost func(Turn) int) {
	if maxTurns > 0 && len(c.History) > maxTurns {
		c.History = append([]Turn(nil), c.History[len(c.History)-maxTurns:]...)
	}
	if budget <= 0 || cost == nil {
		return
	}
	total := 0
	for _, t := range c.History {
		total += cost(t)
	}
	drop := 0
	for total > budget && drop < len(c.History) {
		total -= cost(c.History[drop])
		drop++
	}
	if drop > 0 {
		c.History = append([]Turn(nil), c.History[drop:]...)
	}
}
