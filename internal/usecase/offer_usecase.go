package usecase

import (
	"context"
	"math"

	"novaland/internal/domain/entity"
	"novaland/internal/domain/repository"
	"novaland/internal/infrastructure/ratelimit"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
	"novaland/pkg/logger"
)

type OfferUseCase struct {
	negotiationRepo repository.NegotiationRepository
	propertyRepo    repository.PropertyRepository
	settlement      *SettlementUseCase
	feed            *ws.Feed
	rateLimiter     *ratelimit.RateLimiter
}

func NewOfferUseCase(
	negotiationRepo repository.NegotiationRepository,
	propertyRepo repository.PropertyRepository,
	settlement *SettlementUseCase,
	feed *ws.Feed,
	rateLimiter *ratelimit.RateLimiter,
) *OfferUseCase {
	return &OfferUseCase{
		negotiationRepo: negotiationRepo,
		propertyRepo:    propertyRepo,
		settlement:      settlement,
		feed:            feed,
		rateLimiter:     rateLimiter,
	}
}

type SubmitOfferInput struct {
	Price float64
	Body  string
}

// SubmitOffer creates a priced offer in the thread. Only the buyer may
// offer, and at most one offer may be open per thread at any time.
func (uc *OfferUseCase) SubmitOffer(ctx context.Context, wallet, threadID string, input SubmitOfferInput) (*entity.Message, error) {
	wallet = entity.NormalizeWallet(wallet)

	if input.Price <= 0 || math.IsNaN(input.Price) || math.IsInf(input.Price, 0) {
		return nil, errors.Validation("Offer price must be a positive amount", nil)
	}
	if !uc.rateLimiter.Allow(wallet, "submit_offer") {
		return nil, errors.TooManyRequests("You are submitting offers too quickly")
	}

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.BuyerWallet != wallet {
		return nil, errors.Forbidden("Only the buyer may submit offers", nil)
	}
	if thread.Status != entity.ThreadOpen {
		return nil, errors.Conflict("Thread is closed")
	}

	property, err := uc.propertyRepo.GetByID(ctx, thread.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsListed {
		return nil, errors.StaleState("Property is no longer listed")
	}

	message := &entity.Message{
		ThreadID:     threadID,
		SenderWallet: wallet,
		Kind:         entity.MessageOffer,
		Body:         input.Body,
		Price:        input.Price,
		ListPrice:    property.Price,
		OfferStatus:  entity.OfferPending,
		ReadBy:       []string{wallet},
	}
	if err := uc.negotiationRepo.InsertOffer(ctx, message); err != nil {
		return nil, err
	}

	logger.Info("Offer %s submitted on thread %s: %g ETH (list %g)", message.ID, threadID, input.Price, property.Price)

	uc.feed.Publish(ws.Event{
		Type:      ws.EventOfferCreated,
		ThreadID:  threadID,
		MessageID: message.ID,
		Status:    string(entity.OfferPending),
		Payload:   message,
		Wallets:   []string{thread.SellerWallet},
	})

	return message, nil
}

// RejectOffer declines a pending offer. The thread stays open so the buyer
// can negotiate again.
func (uc *OfferUseCase) RejectOffer(ctx context.Context, wallet, threadID, messageID string) (*entity.Message, error) {
	wallet = entity.NormalizeWallet(wallet)

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.SellerWallet != wallet {
		return nil, errors.Forbidden("Only the seller may reject an offer", nil)
	}

	message, err := uc.negotiationRepo.GetMessageByID(ctx, threadID, messageID)
	if err != nil {
		return nil, err
	}
	if !message.IsOffer() {
		return nil, errors.BadRequest("Message is not an offer", nil)
	}
	if message.SenderWallet == wallet {
		return nil, errors.Forbidden("You cannot act on your own offer", nil)
	}

	if err := uc.negotiationRepo.CASOfferStatus(ctx, threadID, messageID, entity.OfferPending, entity.OfferRejected, ""); err != nil {
		return nil, err
	}
	message.OfferStatus = entity.OfferRejected

	uc.feed.Publish(ws.Event{
		Type:      ws.EventOfferRejected,
		ThreadID:  threadID,
		MessageID: messageID,
		Status:    string(entity.OfferRejected),
		Payload:   message,
		Wallets:   []string{thread.BuyerWallet},
	})

	return message, nil
}

// AcceptOffer hands the offer to the settlement coordinator. The returned
// message is in the settling state; the final outcome arrives on the feed.
func (uc *OfferUseCase) AcceptOffer(ctx context.Context, wallet, threadID, messageID string) (*entity.Message, error) {
	return uc.settlement.AcceptOffer(ctx, wallet, threadID, messageID)
}
