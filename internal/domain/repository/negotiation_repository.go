package repository

import (
	"context"

	"novaland/internal/domain/entity"
)

// NegotiationRepository is the persistent conversation store: threads and
// their messages. Implementations must make InsertOffer, CASOfferStatus and
// CommitAcceptance conditional writes, not read-then-write sequences.
type NegotiationRepository interface {
	// CreateThreadIfAbsent returns the existing thread for the
	// (buyer, seller, property) triple, or creates one. The bool reports
	// whether a new thread was created.
	CreateThreadIfAbsent(ctx context.Context, thread *entity.Thread) (*entity.Thread, bool, error)
	GetThreadByID(ctx context.Context, id string) (*entity.Thread, error)
	ListThreadsByWallet(ctx context.Context, wallet string, limit, offset int) ([]*entity.Thread, int64, error)
	UpdateThread(ctx context.Context, thread *entity.Thread) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	// InsertOffer inserts a pending offer message only if the thread is open
	// and holds no pending or settling offer; otherwise it fails with a
	// conflict and writes nothing.
	InsertOffer(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, threadID, messageID string) (*entity.Message, error)
	ListMessagesByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error)
	// MarkThreadRead acknowledges every message in the thread for the given
	// wallet and zeroes its unread counter. Idempotent.
	MarkThreadRead(ctx context.Context, threadID, wallet string) error

	// CASOfferStatus transitions an offer from expected to next in a single
	// conditional write, recording transferHash (empty clears it). Strict:
	// a conflict when the offer holds anything other than expected, even
	// when it already holds next. The only idempotent transition is
	// CommitAcceptance.
	CASOfferStatus(ctx context.Context, threadID, messageID string, expected, next entity.OfferStatus, transferHash string) error
	// SetOfferTransferHash records the ledger handle on a settling offer.
	SetOfferTransferHash(ctx context.Context, threadID, messageID, transferHash string) error
	// CommitAcceptance applies the single logical commit of a confirmed
	// settlement: offer to accepted, thread to closed. Idempotent: committing
	// an already-accepted offer succeeds without further writes.
	CommitAcceptance(ctx context.Context, threadID, messageID string) error
	// ListSettlingOffers returns every offer currently in the settling
	// marker state, across all threads.
	ListSettlingOffers(ctx context.Context) ([]*entity.Message, error)
}
