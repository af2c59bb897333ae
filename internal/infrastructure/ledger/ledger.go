package ledger

import (
	"context"
	"errors"
)

// TransferHandle identifies a broadcast transfer on the settlement ledger.
// Once a handle exists the transfer cannot be retracted; the only question
// left is which terminal outcome it reaches.
type TransferHandle string

type Outcome string

const (
	// OutcomePending: the transfer is broadcast but not yet terminal. Only
	// returned by TransferStatus, never by AwaitConfirmation.
	OutcomePending        Outcome = "pending"
	OutcomeConfirmed      Outcome = "confirmed"
	OutcomeReverted       Outcome = "reverted"
	OutcomeRejectedByUser Outcome = "rejected_by_user"
	OutcomeTimeout        Outcome = "timeout"
)

type Confirmation struct {
	Handle      TransferHandle `json:"handle"`
	Outcome     Outcome        `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	BlockNumber uint64         `json:"block_number,omitempty"`
}

// Client abstracts the external settlement ledger. SubmitTransfer fails
// before broadcast with a LEDGER_* error when the pre-flight guard rejects
// the transfer; after a handle is returned the transfer is irreversible.
type Client interface {
	SubmitTransfer(ctx context.Context, propertyID, buyerWallet string, amount float64) (TransferHandle, error)
	// AwaitConfirmation blocks until the transfer is terminal or ctx
	// expires; expiry maps to OutcomeTimeout, not an error.
	AwaitConfirmation(ctx context.Context, handle TransferHandle) (*Confirmation, error)
	// TransferStatus is the non-blocking probe used by reconciliation.
	TransferStatus(ctx context.Context, handle TransferHandle) (*Confirmation, error)
}

// ErrDeclined is returned by a Signer when the key holder refuses to sign.
var ErrDeclined = errors.New("signer declined the transfer")
