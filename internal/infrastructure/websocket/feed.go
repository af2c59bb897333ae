package websocket

import (
	"sync"
	"time"

	"novaland/pkg/logger"
)

// Event types carried on the change feed.
const (
	EventMessageCreated   = "message.created"
	EventOfferCreated     = "offer.created"
	EventOfferRejected    = "offer.rejected"
	EventOfferAccepted    = "offer.accepted"
	EventSettlementFailed = "settlement.failed"
	EventThreadRead       = "thread.read"
)

// Event is one thread/message mutation fanned out to participants. Delivery
// is at-least-once; subscribers deduplicate on DedupeKey.
type Event struct {
	Type      string      `json:"type"`
	ThreadID  string      `json:"thread_id"`
	MessageID string      `json:"message_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// Wallets lists the recipients; not serialized.
	Wallets []string `json:"-"`
}

func (e Event) DedupeKey() string {
	return e.MessageID + ":" + e.Status
}

type Subscription struct {
	Wallet string
	C      chan Event
	feed   *Feed
	once   sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.unsubscribe(s)
		close(s.C)
	})
}

// Feed fans thread/message mutations out to per-wallet subscribers. A wallet
// may hold several subscriptions (one per open connection).
type Feed struct {
	mutex sync.RWMutex
	subs  map[string]map[*Subscription]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

func (f *Feed) Subscribe(wallet string) *Subscription {
	sub := &Subscription{
		Wallet: wallet,
		C:      make(chan Event, 256),
		feed:   f,
	}

	f.mutex.Lock()
	if f.subs[wallet] == nil {
		f.subs[wallet] = make(map[*Subscription]struct{})
	}
	f.subs[wallet][sub] = struct{}{}
	f.mutex.Unlock()

	logger.Debug("Feed subscriber registered: %s", wallet)
	return sub
}

func (f *Feed) unsubscribe(sub *Subscription) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if set, ok := f.subs[sub.Wallet]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(f.subs, sub.Wallet)
		}
	}
}

// Publish delivers the event to every subscription of every recipient
// wallet. A subscriber that cannot keep up has its events dropped rather
// than blocking the publisher; the at-least-once contract is preserved by
// clients re-syncing over the REST surface on reconnect.
func (f *Feed) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	f.mutex.RLock()
	defer f.mutex.RUnlock()

	for _, wallet := range event.Wallets {
		for sub := range f.subs[wallet] {
			select {
			case sub.C <- event:
			default:
				logger.Warn("Feed subscriber %s is lagging, dropping event %s", wallet, event.Type)
			}
		}
	}
}

// SubscriberCount is used by tests and the health surface.
func (f *Feed) SubscriberCount(wallet string) int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.subs[wallet])
}
