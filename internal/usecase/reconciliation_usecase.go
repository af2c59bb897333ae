package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"novaland/internal/domain/entity"
	"novaland/internal/domain/repository"
	"novaland/internal/infrastructure/ledger"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
	"novaland/pkg/logger"
	"novaland/pkg/metrics"
)

// ReconciliationUseCase sweeps offers stuck in settling and resolves them
// against the ledger, which is the source of truth. It heals crashes and
// confirmation timeouts: a transfer that confirmed while nobody was
// watching still ends up committed in the store.
type ReconciliationUseCase struct {
	negotiationRepo repository.NegotiationRepository
	ledger          ledger.Client
	feed            *ws.Feed
}

func NewReconciliationUseCase(
	negotiationRepo repository.NegotiationRepository,
	ledgerClient ledger.Client,
	feed *ws.Feed,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		negotiationRepo: negotiationRepo,
		ledger:          ledgerClient,
		feed:            feed,
	}
}

// Start runs Run on a fixed interval until ctx is cancelled.
func (uc *ReconciliationUseCase) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("Reconciliation worker started (interval %s)", interval)
		for {
			select {
			case <-ctx.Done():
				logger.Info("Reconciliation worker stopped")
				return
			case <-ticker.C:
				if err := uc.Run(ctx); err != nil {
					logger.Error("Reconciliation pass failed: %v", err)
				}
			}
		}
	}()
}

// Run performs a single reconciliation pass. Safe to call concurrently with
// live settlements: every store write is a guarded transition, so the worker
// and an in-flight watcher cannot double-apply an outcome.
func (uc *ReconciliationUseCase) Run(ctx context.Context) error {
	metrics.ReconcileRuns.Inc()

	offers, err := uc.negotiationRepo.ListSettlingOffers(ctx)
	if err != nil {
		return errors.Reconciliation("Failed to list settling offers", err)
	}
	if len(offers) == 0 {
		return nil
	}

	logger.Info("Reconciling %d settling offer(s)", len(offers))
	for _, offer := range offers {
		if err := uc.reconcileOffer(ctx, offer); err != nil {
			metrics.ReconcileFailures.Inc()
			logger.Error("Reconcile failed: thread=%s offer=%s err=%v", offer.ThreadID, offer.ID, err)
		}
	}
	return nil
}

func (uc *ReconciliationUseCase) reconcileOffer(ctx context.Context, offer *entity.Message) error {
	thread, err := uc.negotiationRepo.GetThreadByID(ctx, offer.ThreadID)
	if err != nil {
		return err
	}

	// A settling offer without a handle means the process died between
	// claiming the offer and broadcasting the transfer. Nothing can be
	// on chain, so release it.
	if offer.TransferHash == "" {
		if err := uc.negotiationRepo.CASOfferStatus(ctx, offer.ThreadID, offer.ID, entity.OfferSettling, entity.OfferPending, ""); err != nil {
			return err
		}
		metrics.ReconcileHeals.Inc()
		logger.Warn("Released orphaned settling offer %s on thread %s (no transfer handle)", offer.ID, offer.ThreadID)
		uc.publishReleased(thread, offer)
		return nil
	}

	confirmation, err := uc.ledger.TransferStatus(ctx, ledger.TransferHandle(offer.TransferHash))
	if err != nil {
		return errors.Reconciliation("Ledger status probe failed", err)
	}

	switch confirmation.Outcome {
	case ledger.OutcomePending:
		// Still in flight. Leave the claim alone.
		return nil

	case ledger.OutcomeConfirmed:
		commit := func() error {
			return uc.negotiationRepo.CommitAcceptance(ctx, offer.ThreadID, offer.ID)
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
		if err := backoff.Retry(commit, policy); err != nil {
			logger.Divergence(offer.ThreadID, offer.ID, offer.TransferHash, err)
			return errors.Reconciliation("Failed to commit confirmed transfer", err)
		}
		metrics.ReconcileHeals.Inc()
		logger.Info("Healed settled offer: thread=%s offer=%s handle=%s", offer.ThreadID, offer.ID, offer.TransferHash)

		offer.OfferStatus = entity.OfferAccepted
		uc.feed.Publish(ws.Event{
			Type:      ws.EventOfferAccepted,
			ThreadID:  offer.ThreadID,
			MessageID: offer.ID,
			Status:    string(entity.OfferAccepted),
			Payload:   offer,
			Wallets:   []string{thread.BuyerWallet, thread.SellerWallet},
		})
		return nil

	case ledger.OutcomeReverted, ledger.OutcomeRejectedByUser:
		if err := uc.negotiationRepo.CASOfferStatus(ctx, offer.ThreadID, offer.ID, entity.OfferSettling, entity.OfferPending, ""); err != nil {
			return err
		}
		metrics.ReconcileHeals.Inc()
		logger.Warn("Released reverted offer %s on thread %s (handle %s)", offer.ID, offer.ThreadID, offer.TransferHash)
		uc.publishReleased(thread, offer)
		return nil
	}

	return nil
}

func (uc *ReconciliationUseCase) publishReleased(thread *entity.Thread, offer *entity.Message) {
	offer.OfferStatus = entity.OfferPending
	offer.TransferHash = ""
	uc.feed.Publish(ws.Event{
		Type:      ws.EventSettlementFailed,
		ThreadID:  thread.ID,
		MessageID: offer.ID,
		Status:    string(entity.OfferPending),
		Payload: map[string]interface{}{
			"code":    errors.LedgerReverted,
			"message": "Settlement did not complete, offer is open again",
			"offer":   offer,
		},
		Wallets: []string{thread.BuyerWallet, thread.SellerWallet},
	})
}
