package domain

const (
	DefaultHistoryCapacity = 100
	DefaultHistoryOnJoin   = 50
)

// History is a bounded, ordered log of recent chat messages.
// Once full, every append discards the oldest entry.
type History struct {
	capacity int
	messages []ChatMessage
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, messages: make([]ChatMessage, 0, capacity)}
}

// Append stores msg. Len() <= capacity holds after every call.
func (h *History) Append(msg ChatMessage) {
	if len(h.messages) == h.capacity {
		copy(h.messages, h.messages[1:])
		h.messages[len(h.messages)-1] = msg
		return
	}
	h.messages = append(h.messages, msg)
}

// Recent returns the last k messages in chronological order.
func (h *History) Recent(k int) []ChatMessage {
	if k <= 0 {
		return []ChatMessage{}
	}
	if k > len(h.messages) {
		k = len(h.messages)
	}
	out := make([]ChatMessage, k)
	copy(out, h.messages[len(h.messages)-k:])
	return out
}

// Restore replaces the content with msgs, keeping only the newest capacity entries.
func (h *History) Restore(msgs []ChatMessage) {
	h.messages = h.messages[:0]
	for _, m := range msgs {
		h.Append(m)
	}
}

func (h *History) Len() int {
	return len(h.messages)
}

func (h *History) Capacity() int {
	return h.capacity
}
