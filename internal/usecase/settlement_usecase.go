package usecase

import (
	"context"
	"time"

	"novaland/internal/domain/entity"
	"novaland/internal/domain/repository"
	"novaland/internal/infrastructure/ledger"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
	"novaland/pkg/logger"
	"novaland/pkg/metrics"
)

// SettlementUseCase drives an accepted offer through the ledger transfer
// and commits the result back to the store. The store transition
// pending -> settling is the lock: only one settlement can be in flight
// per thread, and the offer never reaches accepted unless the transfer
// confirmed on chain.
type SettlementUseCase struct {
	negotiationRepo repository.NegotiationRepository
	propertyRepo    repository.PropertyRepository
	ledger          ledger.Client
	feed            *ws.Feed
	timeout         time.Duration
}

func NewSettlementUseCase(
	negotiationRepo repository.NegotiationRepository,
	propertyRepo repository.PropertyRepository,
	ledgerClient ledger.Client,
	feed *ws.Feed,
	timeout time.Duration,
) *SettlementUseCase {
	return &SettlementUseCase{
		negotiationRepo: negotiationRepo,
		propertyRepo:    propertyRepo,
		ledger:          ledgerClient,
		feed:            feed,
		timeout:         timeout,
	}
}

// AcceptOffer validates that the caller may settle this offer, claims it by
// moving pending -> settling, and launches the transfer in the background.
// The returned message is the settling snapshot; the terminal outcome is
// published on the feed.
func (uc *SettlementUseCase) AcceptOffer(ctx context.Context, wallet, threadID, messageID string) (*entity.Message, error) {
	wallet = entity.NormalizeWallet(wallet)

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.SellerWallet != wallet {
		return nil, errors.Forbidden("Only the seller may accept an offer", nil)
	}
	if thread.Status != entity.ThreadOpen {
		return nil, errors.Conflict("Thread is closed")
	}

	message, err := uc.negotiationRepo.GetMessageByID(ctx, threadID, messageID)
	if err != nil {
		return nil, err
	}
	if !message.IsOffer() {
		return nil, errors.BadRequest("Message is not an offer", nil)
	}
	if message.SenderWallet == wallet {
		return nil, errors.Forbidden("You cannot accept your own offer", nil)
	}

	property, err := uc.propertyRepo.GetByID(ctx, thread.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsListed {
		return nil, errors.StaleState("Property is no longer listed")
	}
	if property.Price != message.ListPrice {
		return nil, errors.StaleState("Listing price changed since the offer was made")
	}

	// Claim the offer. A concurrent accept loses the CAS and gets a
	// conflict here.
	if err := uc.negotiationRepo.CASOfferStatus(ctx, threadID, messageID, entity.OfferPending, entity.OfferSettling, ""); err != nil {
		return nil, err
	}
	message.OfferStatus = entity.OfferSettling

	logger.Info("Settlement started: thread=%s offer=%s buyer=%s price=%g ETH", threadID, messageID, thread.BuyerWallet, message.Price)
	metrics.SettlementsSubmitted.Inc()

	go uc.settle(thread, message)

	return message, nil
}

// settle runs detached from the request context. Settlement must not be
// cancelled by the caller hanging up once the transfer may have been
// broadcast.
func (uc *SettlementUseCase) settle(thread *entity.Thread, message *entity.Message) {
	ctx := context.Background()

	handle, err := uc.ledger.SubmitTransfer(ctx, thread.PropertyID, thread.BuyerWallet, message.Price)
	if err != nil {
		// Nothing was broadcast, so the offer can safely go back
		// to pending.
		uc.releaseOffer(ctx, thread, message, err)
		return
	}

	if err := uc.negotiationRepo.SetOfferTransferHash(ctx, thread.ID, message.ID, string(handle)); err != nil {
		// The transfer is in flight but the store does not know the
		// handle. Leave the offer settling; it cannot be healed
		// automatically without the handle.
		logger.Divergence(thread.ID, message.ID, string(handle), err)
		metrics.SettlementOutcomes.WithLabelValues("diverged").Inc()
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	confirmation, err := uc.ledger.AwaitConfirmation(waitCtx, handle)
	if err != nil {
		// Transport failure while watching, not a verdict. The offer
		// stays settling for the reconciliation worker.
		logger.Error("Confirmation watch failed: thread=%s offer=%s handle=%s err=%v", thread.ID, message.ID, handle, err)
		metrics.SettlementOutcomes.WithLabelValues("timeout").Inc()
		uc.publishFailure(thread, message, errors.LedgerTimeout, "Transfer outcome unknown, still reconciling")
		return
	}

	uc.applyConfirmation(ctx, thread, message, confirmation)
}

// applyConfirmation maps a terminal (or timed out) ledger verdict onto the
// store.
func (uc *SettlementUseCase) applyConfirmation(ctx context.Context, thread *entity.Thread, message *entity.Message, confirmation *ledger.Confirmation) {
	switch confirmation.Outcome {
	case ledger.OutcomeConfirmed:
		pendingSync := false
		if err := uc.negotiationRepo.CommitAcceptance(ctx, thread.ID, message.ID); err != nil {
			// Chain says sold, store says settling. Ownership moved
			// regardless, so this is still a success for the parties;
			// the offer stays settling until the worker re-commits.
			logger.Divergence(thread.ID, message.ID, string(confirmation.Handle), err)
			metrics.SettlementOutcomes.WithLabelValues("diverged").Inc()
			pendingSync = true
		} else {
			metrics.SettlementOutcomes.WithLabelValues("confirmed").Inc()
			logger.Info("Settlement confirmed: thread=%s offer=%s handle=%s block=%d", thread.ID, message.ID, confirmation.Handle, confirmation.BlockNumber)
			message.OfferStatus = entity.OfferAccepted
		}

		message.TransferHash = string(confirmation.Handle)
		uc.feed.Publish(ws.Event{
			Type:      ws.EventOfferAccepted,
			ThreadID:  thread.ID,
			MessageID: message.ID,
			Status:    string(entity.OfferAccepted),
			Payload: map[string]interface{}{
				"offer":        message,
				"pending_sync": pendingSync,
			},
			Wallets: []string{thread.BuyerWallet, thread.SellerWallet},
		})

	case ledger.OutcomeReverted:
		metrics.SettlementOutcomes.WithLabelValues("reverted").Inc()
		uc.releaseOffer(ctx, thread, message, errors.Ledger(errors.LedgerReverted, "Transfer reverted on chain", nil))

	case ledger.OutcomeRejectedByUser:
		metrics.SettlementOutcomes.WithLabelValues("rejected").Inc()
		uc.releaseOffer(ctx, thread, message, errors.Ledger(errors.LedgerRejectedByUser, "Transfer was rejected before broadcast", nil))

	case ledger.OutcomeTimeout:
		// Not terminal. The transfer may still confirm, so the offer
		// keeps its settling claim until the worker learns the truth.
		metrics.SettlementOutcomes.WithLabelValues("timeout").Inc()
		logger.Warn("Settlement timed out waiting for confirmation: thread=%s offer=%s handle=%s", thread.ID, message.ID, confirmation.Handle)
		uc.publishFailure(thread, message, errors.LedgerTimeout, "Transfer outcome unknown, still reconciling")
	}
}

// releaseOffer returns a settling offer to pending after a failure that is
// known not to have moved ownership.
func (uc *SettlementUseCase) releaseOffer(ctx context.Context, thread *entity.Thread, message *entity.Message, cause error) {
	code := "INTERNAL_ERROR"
	messageText := "Settlement failed"
	if appErr, ok := cause.(*errors.AppError); ok {
		code = appErr.Code
		messageText = appErr.Message
	}

	if err := uc.negotiationRepo.CASOfferStatus(ctx, thread.ID, message.ID, entity.OfferSettling, entity.OfferPending, ""); err != nil {
		logger.Error("Failed to release offer %s on thread %s: %v", message.ID, thread.ID, err)
		return
	}
	message.OfferStatus = entity.OfferPending
	message.TransferHash = ""

	logger.Warn("Settlement failed, offer released: thread=%s offer=%s code=%s cause=%v", thread.ID, message.ID, code, cause)
	uc.publishFailure(thread, message, code, messageText)
}

func (uc *SettlementUseCase) publishFailure(thread *entity.Thread, message *entity.Message, code, reason string) {
	uc.feed.Publish(ws.Event{
		Type:      ws.EventSettlementFailed,
		ThreadID:  thread.ID,
		MessageID: message.ID,
		Status:    string(message.OfferStatus),
		Payload: map[string]interface{}{
			"code":    code,
			"message": reason,
			"offer":   message,
		},
		Wallets: []string{thread.BuyerWallet, thread.SellerWallet},
	})
}
