package shell

import (
	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/mqtt/topic"
)

// DefaultHistorySize is how many inbound messages the shell keeps.
const DefaultHistorySize = 20

// History keeps the most recent messages, oldest first. It is not safe for
// concurrent use; the Shell serializes access.
type History struct {
	size  int
	items []supervisor.Message
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, items: make([]supervisor.Message, 0, size)}
}

// Add appends m, evicting the oldest message when full.
func (h *History) Add(m supervisor.Message) {
	if len(h.items) == h.size {
		copy(h.items, h.items[1:])
		h.items = h.items[:h.size-1]
	}
	h.items = append(h.items, m)
}

// List returns a copy of the kept messages, oldest first.
func (h *History) List() []supervisor.Message {
	return append([]supervisor.Message(nil), h.items...)
}

// Filter returns the kept messages whose topic matches filter, which may
// contain MQTT wildcards. An empty filter matches everything.
func (h *History) Filter(filter string) []supervisor.Message {
	if filter == "" {
		return h.List()
	}
	var out []supervisor.Message
	for _, m := range h.items {
		if topic.Match(filter, m.Topic) {
			out = append(out, m)
		}
	}
	return out
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Clear() { h.items = h.items[:0] }

// Subscriptions is the list of topics the user subscribed to, in order,
// without duplicates.
type Subscriptions struct {
	topics []string
}

// Add appends t and reports whether it was new.
func (s *Subscriptions) Add(t string) bool {
	if s.Contains(t) {
		return false
	}
	s.topics = append(s.topics, t)
	return true
}

func (s *Subscriptions) Contains(t string) bool {
	for _, have := range s.topics {
		if have == t {
			return true
		}
	}
	return false
}

func (s *Subscriptions) List() []string {
	return append([]string(nil), s.topics...)
}

func (s *Subscriptions) Len() int { return len(s.topics) }

func (s *Subscriptions) Clear() { s.topics = nil }
