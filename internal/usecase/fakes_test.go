package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"novaland/internal/domain/entity"
	"novaland/internal/infrastructure/ledger"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
)

// memoryNegotiationRepo is an in-memory store with the same conditional-write
// semantics the Firestore implementation provides.
type memoryNegotiationRepo struct {
	mu       sync.Mutex
	threads  map[string]*entity.Thread
	messages map[string][]*entity.Message

	commitErrs int // CommitAcceptance fails this many times before succeeding
}

func newMemoryNegotiationRepo() *memoryNegotiationRepo {
	return &memoryNegotiationRepo{
		threads:  make(map[string]*entity.Thread),
		messages: make(map[string][]*entity.Message),
	}
}

func (r *memoryNegotiationRepo) CreateThreadIfAbsent(ctx context.Context, thread *entity.Thread) (*entity.Thread, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s_%s_%s", thread.BuyerWallet, thread.SellerWallet, thread.PropertyID)
	if existing, ok := r.threads[key]; ok {
		return existing, false, nil
	}

	thread.ID = key
	thread.Status = entity.ThreadOpen
	thread.Participants = []string{thread.BuyerWallet, thread.SellerWallet}
	thread.UnreadCount = map[string]int{}
	thread.CreatedAt = time.Now()
	thread.UpdatedAt = thread.CreatedAt
	r.threads[key] = thread
	return thread, true, nil
}

func (r *memoryNegotiationRepo) GetThreadByID(ctx context.Context, id string) (*entity.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, ok := r.threads[id]
	if !ok {
		return nil, errors.NotFound("Thread", nil)
	}
	copied := *thread
	return &copied, nil
}

func (r *memoryNegotiationRepo) ListThreadsByWallet(ctx context.Context, wallet string, limit, offset int) ([]*entity.Thread, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Thread
	for _, thread := range r.threads {
		if thread.IsParticipant(wallet) {
			copied := *thread
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryNegotiationRepo) UpdateThread(ctx context.Context, thread *entity.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.threads[thread.ID]; !ok {
		return errors.NotFound("Thread", nil)
	}
	copied := *thread
	r.threads[thread.ID] = &copied
	return nil
}

func (r *memoryNegotiationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = uuid.New().String()
	message.CreatedAt = time.Now()
	r.messages[message.ThreadID] = append(r.messages[message.ThreadID], message)
	return nil
}

func (r *memoryNegotiationRepo) InsertOffer(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, ok := r.threads[message.ThreadID]
	if !ok {
		return errors.NotFound("Thread", nil)
	}
	if thread.Status != entity.ThreadOpen {
		return errors.Conflict("Thread is closed")
	}
	for _, m := range r.messages[message.ThreadID] {
		if m.IsOpenOffer() {
			return errors.Conflict("An offer is already pending in this thread")
		}
	}

	message.ID = uuid.New().String()
	message.CreatedAt = time.Now()
	r.messages[message.ThreadID] = append(r.messages[message.ThreadID], message)
	return nil
}

func (r *memoryNegotiationRepo) GetMessageByID(ctx context.Context, threadID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages[threadID] {
		if m.ID == messageID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *memoryNegotiationRepo) ListMessagesByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Message
	for _, m := range r.messages[threadID] {
		copied := *m
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *memoryNegotiationRepo) MarkThreadRead(ctx context.Context, threadID, wallet string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, ok := r.threads[threadID]
	if !ok {
		return errors.NotFound("Thread", nil)
	}
	for _, m := range r.messages[threadID] {
		if !m.ReadByWallet(wallet) {
			m.ReadBy = append(m.ReadBy, wallet)
		}
	}
	thread.UnreadCount[wallet] = 0
	return nil
}

func (r *memoryNegotiationRepo) CASOfferStatus(ctx context.Context, threadID, messageID string, expected, next entity.OfferStatus, transferHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages[threadID] {
		if m.ID != messageID {
			continue
		}
		if !m.IsOffer() {
			return errors.BadRequest("Message is not an offer", nil)
		}
		if m.OfferStatus != expected {
			return errors.Conflict(fmt.Sprintf("Offer is %s, not %s", m.OfferStatus, expected))
		}
		m.OfferStatus = next
		m.TransferHash = transferHash
		return nil
	}
	return errors.NotFound("Message", nil)
}

func (r *memoryNegotiationRepo) SetOfferTransferHash(ctx context.Context, threadID, messageID, transferHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages[threadID] {
		if m.ID == messageID {
			m.TransferHash = transferHash
			return nil
		}
	}
	return errors.NotFound("Message", nil)
}

func (r *memoryNegotiationRepo) CommitAcceptance(ctx context.Context, threadID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commitErrs > 0 {
		r.commitErrs--
		return errors.Internal("store write failed", nil)
	}

	thread, ok := r.threads[threadID]
	if !ok {
		return errors.NotFound("Thread", nil)
	}
	for _, m := range r.messages[threadID] {
		if m.ID != messageID {
			continue
		}
		if m.OfferStatus == entity.OfferAccepted {
			return nil
		}
		now := time.Now()
		m.OfferStatus = entity.OfferAccepted
		m.SettledAt = &now
		thread.Status = entity.ThreadClosed
		return nil
	}
	return errors.NotFound("Message", nil)
}

func (r *memoryNegotiationRepo) ListSettlingOffers(ctx context.Context) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Message
	for _, msgs := range r.messages {
		for _, m := range msgs {
			if m.IsOffer() && m.OfferStatus == entity.OfferSettling {
				copied := *m
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (r *memoryNegotiationRepo) offerStatus(t *testing.T, threadID, messageID string) entity.OfferStatus {
	t.Helper()
	m, err := r.GetMessageByID(context.Background(), threadID, messageID)
	if err != nil {
		t.Fatalf("offer %s not found: %v", messageID, err)
	}
	return m.OfferStatus
}

// memoryPropertyRepo serves fixed property records.
type memoryPropertyRepo struct {
	mu         sync.Mutex
	properties map[string]*entity.Property
}

func newMemoryPropertyRepo(properties ...*entity.Property) *memoryPropertyRepo {
	repo := &memoryPropertyRepo{properties: make(map[string]*entity.Property)}
	for _, p := range properties {
		repo.properties[p.ID] = p
	}
	return repo
}

func (r *memoryPropertyRepo) GetByID(ctx context.Context, id string) (*entity.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, errors.NotFound("Property", nil)
	}
	copied := *p
	return &copied, nil
}

func (r *memoryPropertyRepo) set(p *entity.Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[p.ID] = p
}

// scriptedLedger returns pre-programmed results and records calls. When gate
// is set, AwaitConfirmation blocks until the gate is closed, pinning the
// in-flight settlement window open for the test.
type scriptedLedger struct {
	mu sync.Mutex

	submitErr    error
	handle       ledger.TransferHandle
	confirmation *ledger.Confirmation
	awaitErr     error
	status       *ledger.Confirmation
	gate         chan struct{}

	submits int
	awaits  int
	probes  int
}

func (l *scriptedLedger) SubmitTransfer(ctx context.Context, propertyID, buyerWallet string, amount float64) (ledger.TransferHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submits++
	if l.submitErr != nil {
		return "", l.submitErr
	}
	return l.handle, nil
}

func (l *scriptedLedger) AwaitConfirmation(ctx context.Context, handle ledger.TransferHandle) (*ledger.Confirmation, error) {
	l.mu.Lock()
	l.awaits++
	gate := l.gate
	awaitErr := l.awaitErr
	confirmation := l.confirmation
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &ledger.Confirmation{Handle: handle, Outcome: ledger.OutcomeTimeout}, nil
		}
	}
	if awaitErr != nil {
		return nil, awaitErr
	}
	return confirmation, nil
}

func (l *scriptedLedger) TransferStatus(ctx context.Context, handle ledger.TransferHandle) (*ledger.Confirmation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.probes++
	return l.status, nil
}

// waitForEvent blocks until an event of the given type arrives on the
// subscription or the timeout passes.
func waitForEvent(t *testing.T, sub *ws.Subscription, eventType string) ws.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sub.C:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
			return ws.Event{}
		}
	}
}
