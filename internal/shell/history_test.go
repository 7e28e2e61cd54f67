package shell

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autopeer-io/brokerlink/internal/supervisor"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistorySize+5; i++ {
		h.Add(supervisor.Message{Topic: "t", Payload: []byte(fmt.Sprint(i))})
	}

	got := h.List()
	assert.Len(t, got, DefaultHistorySize)
	assert.Equal(t, "5", string(got[0].Payload))
	assert.Equal(t, fmt.Sprint(DefaultHistorySize+4), string(got[len(got)-1].Payload))
}

func TestHistoryFilter(t *testing.T) {
	h := NewHistory(5)
	for _, topic := range []string{"home/kitchen/temp", "home/garage/temp", "office/temp", "$SYS/uptime"} {
		h.Add(supervisor.Message{Topic: topic})
	}

	topics := func(ms []supervisor.Message) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.Topic)
		}
		return out
	}

	assert.Len(t, h.Filter(""), 4)
	assert.Equal(t, []string{"home/kitchen/temp", "home/garage/temp"}, topics(h.Filter("home/#")))
	assert.Equal(t, []string{"home/kitchen/temp", "home/garage/temp", "office/temp"}, topics(h.Filter("#")))
	assert.Equal(t, []string{"office/temp"}, topics(h.Filter("office/+")))

	h.Clear()
	assert.Equal(t, 0, h.Len())
}

func TestSubscriptions(t *testing.T) {
	var s Subscriptions
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.Equal(t, []string{"a", "b"}, s.List())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("a"))
}
