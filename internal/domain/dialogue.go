package domain

// DialogueCapacity is the maximum number of turns retained per session.
const DialogueCapacity = 10

// Turn is a single exchange in a session's dialogue memory.
type Turn struct {
	Role Role
	Text string
}

// DialogueMemory is a per-session bounded, ordered list of turns with
// oldest-first eviction. The zero value is an empty memory ready to use.
// Callers are expected to serialize access with their own mutex; the
// type itself performs no locking (see internal/answer.Sessions, which
// owns one mutex per session).
type DialogueMemory struct {
	turns []Turn
}

// Append adds a user/assistant exchange, evicting the oldest turns if
// capacity is exceeded.
func (m *DialogueMemory) Append(userText, assistantText string) {
	m.turns = append(m.turns, Turn{Role: RoleUser, Text: userText}, Turn{Role: RoleAssistant, Text: assistantText})
	m.evict()
}

func (m *DialogueMemory) evict() {
	const maxTurns = DialogueCapacity
	if len(m.turns) > maxTurns {
		m.turns = m.turns[len(m.turns)-maxTurns:]
	}
}

// Clear empties the memory.
func (m *DialogueMemory) Clear() {
	m.turns = nil
}

// Turns returns a copy of the stored turns, oldest first.
func (m *DialogueMemory) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Messages renders the stored turns as Generator messages.
func (m *DialogueMemory) Messages() []Message {
	out := make([]Message, len(m.turns))
	for i, t := range m.turns {
		out[i] = Message{Role: t.Role, Text: t.Text}
	}
	return out
}
