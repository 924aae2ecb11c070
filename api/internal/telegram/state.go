package telegram

import (
	"sync"

	"visionbot/api/internal/bot"
)

// Modes remembers which operation each chat runs on its pictures.
type Modes struct {
	def bot.Operation
	m   sync.Map // chatID -> bot.Operation
}

func NewModes(def bot.Operation) *Modes {
	return &Modes{def: def}
}

func (m *Modes) Get(chatID int64) bot.Operation {
	if v, ok := m.m.Load(chatID); ok {
		return v.(bot.Operation)
	}
	return m.def
}

func (m *Modes) Set(chatID int64, op bot.Operation) {
	m.m.Store(chatID, op)
}

// ParseOperation maps a mode name from config or a command onto an operation.
func ParseOperation(s string) (bot.Operation, bool) {
	switch s {
	case "caption", "describe":
		return bot.OpDescribe, true
	case "ocr", "text":
		return bot.OpRecognizeText, true
	default:
		return bot.OpDescribe, false
	}
}

type consentCard struct {
	resultID string
	name     string
}

// cards remembers the latest consent card of each chat. A newer card
// replaces the older one, the same way the pending result does.
type cards struct {
	m sync.Map // chatID -> consentCard
}

func (c *cards) offer(chatID int64, resultID, name string) {
	c.m.Store(chatID, consentCard{resultID: resultID, name: name})
}

// name returns the file name offered with resultID, if it is still the
// chat's latest card.
func (c *cards) name(chatID int64, resultID string) (string, bool) {
	v, ok := c.m.Load(chatID)
	if !ok {
		return "", false
	}
	cc := v.(consentCard)
	if cc.resultID != resultID {
		return "", false
	}
	return cc.name, true
}

func (c *cards) forget(chatID int64, resultID string) {
	if v, ok := c.m.Load(chatID); ok && v.(consentCard).resultID == resultID {
		c.m.CompareAndDelete(chatID, v)
	}
}
