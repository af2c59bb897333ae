package entity

import "time"

type MessageKind string

const (
	MessageNote  MessageKind = "note"
	MessageOffer MessageKind = "offer"
)

type OfferStatus string

const (
	OfferPending OfferStatus = "pending"
	// OfferSettling marks an accepted-but-not-yet-settled offer: the ledger
	// transfer is in flight (or awaiting reconciliation) and no other offer
	// activity is allowed in the thread.
	OfferSettling OfferStatus = "settling"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

type Message struct {
	ID           string      `json:"id" firestore:"id"`
	ThreadID     string      `json:"thread_id" firestore:"threadId"`
	SenderWallet string      `json:"sender_wallet" firestore:"senderWallet"`
	Kind         MessageKind `json:"kind" firestore:"kind"`
	Body         string      `json:"body,omitempty" firestore:"body,omitempty"`

	// Offer fields. Price is the proposed amount in ETH; ListPrice is the
	// property's listing price captured when the offer was submitted, used to
	// detect stale accepts after the seller re-prices the listing.
	Price       float64     `json:"price,omitempty" firestore:"price,omitempty"`
	ListPrice   float64     `json:"list_price,omitempty" firestore:"listPrice,omitempty"`
	OfferStatus OfferStatus `json:"offer_status,omitempty" firestore:"offerStatus,omitempty"`

	// TransferHash is the ledger handle, set when the offer enters settling.
	TransferHash string     `json:"transfer_hash,omitempty" firestore:"transferHash,omitempty"`
	SettledAt    *time.Time `json:"settled_at,omitempty" firestore:"settledAt,omitempty"`

	ReadBy    []string  `json:"read_by" firestore:"readBy"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

func (m *Message) IsOffer() bool {
	return m.Kind == MessageOffer
}

// IsOpenOffer reports whether the offer still blocks new offers in its
// thread: pending, or settling with a transfer in flight.
func (m *Message) IsOpenOffer() bool {
	return m.Kind == MessageOffer && (m.OfferStatus == OfferPending || m.OfferStatus == OfferSettling)
}

func (m *Message) ReadByWallet(wallet string) bool {
	wallet = NormalizeWallet(wallet)
	for _, r := range m.ReadBy {
		if r == wallet {
			return true
		}
	}
	return false
}
