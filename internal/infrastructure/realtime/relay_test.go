package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(sub *Subscription) []ChangeEvent {
	var events []ChangeEvent
	for {
		select {
		case event := <-sub.Events():
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestPublishMatchesFilter(t *testing.T) {
	relay := NewRelay()

	matching := relay.Subscribe(TableMessages, "conv-1")
	defer matching.Close()
	other := relay.Subscribe(TableMessages, "conv-2")
	defer other.Close()
	wildcard := relay.Subscribe(TableMessages, "")
	defer wildcard.Close()
	conversations := relay.Subscribe(TableConversations, "conv-1")
	defer conversations.Close()

	relay.Publish(ChangeEvent{Table: TableMessages, Type: EventInsert, Filter: "conv-1"})

	assert.Len(t, collect(matching), 1)
	assert.Empty(t, collect(other))
	assert.Len(t, collect(wildcard), 1)
	assert.Empty(t, collect(conversations))
}

func TestCloseStopsDelivery(t *testing.T) {
	relay := NewRelay()

	sub := relay.Subscribe(TableMessages, "conv-1")
	sub.Close()
	sub.Close() // idempotent

	relay.Publish(ChangeEvent{Table: TableMessages, Type: EventInsert, Filter: "conv-1"})

	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestSlowSubscriberKeepsNewestEvents(t *testing.T) {
	relay := NewRelay()

	sub := relay.Subscribe(TableMessages, "conv-1")
	defer sub.Close()

	// Publish past the buffer; Publish must not block, and the oldest
	// buffered events give way to newer ones.
	for i := 0; i < 200; i++ {
		relay.Publish(ChangeEvent{Table: TableMessages, Type: EventInsert, Filter: "conv-1", NewRow: i})
	}

	events := collect(sub)
	require.Len(t, events, 64)
	assert.Equal(t, 136, events[0].NewRow)
	assert.Equal(t, 199, events[len(events)-1].NewRow)
}
