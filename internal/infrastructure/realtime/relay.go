package realtime

import (
	"sync"

	"unimarket/pkg/logger"
)

// Tables the relay fans out changes for.
const (
	TableMessages      = "messages"
	TableConversations = "conversations"
)

// Event kinds.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// ChangeEvent is one row-level change. OldRow/NewRow carry the affected
// entity depending on the event kind; Filter is the value subscriptions
// match against (conversation id for messages, user id for conversations).
type ChangeEvent struct {
	Table  string
	Type   string
	Filter string
	OldRow interface{}
	NewRow interface{}
}

// Subscription is one listener on a (table, filter) pair. Delivery is
// at-least-once and may be reordered relative to write order across
// subscribers; consumers dedup by row id.
type Subscription struct {
	relay  *Relay
	table  string
	filter string
	events chan ChangeEvent
	once   sync.Once
}

// Events returns the subscription's event stream. The channel closes after
// Close.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.relay.unsubscribe(s)
		close(s.events)
	})
}

// Relay is the in-process change-event fan-out. Repositories publish after
// successful writes; the WebSocket manager and any server-side consumers
// subscribe per (table, filter).
type Relay struct {
	mutex sync.RWMutex
	subs  map[string]map[*Subscription]struct{}
}

func NewRelay() *Relay {
	return &Relay{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

func subKey(table, filter string) string {
	return table + "\x00" + filter
}

// Subscribe registers a listener for a table and filter value. An empty
// filter receives every event on the table.
func (r *Relay) Subscribe(table, filter string) *Subscription {
	sub := &Subscription{
		relay:  r,
		table:  table,
		filter: filter,
		events: make(chan ChangeEvent, 64),
	}

	key := subKey(table, filter)

	r.mutex.Lock()
	if r.subs[key] == nil {
		r.subs[key] = make(map[*Subscription]struct{})
	}
	r.subs[key][sub] = struct{}{}
	r.mutex.Unlock()

	return sub
}

func (r *Relay) unsubscribe(sub *Subscription) {
	key := subKey(sub.table, sub.filter)

	r.mutex.Lock()
	if set, ok := r.subs[key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.subs, key)
		}
	}
	r.mutex.Unlock()
}

// Publish fans the event out to matching subscribers. A slow subscriber with
// a full buffer loses its oldest buffered event so the stream stays current;
// consumers already tolerate gaps because conversation-level events trigger
// a full refetch.
func (r *Relay) Publish(event ChangeEvent) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, key := range []string{subKey(event.Table, event.Filter), subKey(event.Table, "")} {
		for sub := range r.subs[key] {
			select {
			case sub.events <- event:
				continue
			default:
			}

			// Buffer full: evict the oldest event, then retry once. A racing
			// publisher can steal the freed slot; the event is lost then.
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- event:
				logger.Warn("realtime: dropped oldest %s event for slow subscriber", event.Table)
			default:
				logger.Warn("realtime: dropping %s/%s event for slow subscriber", event.Table, event.Type)
			}
		}
	}
}
