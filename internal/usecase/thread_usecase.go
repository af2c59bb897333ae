package usecase

import (
	"context"

	"novaland/internal/domain/entity"
	"novaland/internal/domain/repository"
	"novaland/internal/infrastructure/ratelimit"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
	"novaland/pkg/logger"
)

type ThreadUseCase struct {
	negotiationRepo repository.NegotiationRepository
	propertyRepo    repository.PropertyRepository
	feed            *ws.Feed
	rateLimiter     *ratelimit.RateLimiter
}

func NewThreadUseCase(
	negotiationRepo repository.NegotiationRepository,
	propertyRepo repository.PropertyRepository,
	feed *ws.Feed,
	rateLimiter *ratelimit.RateLimiter,
) *ThreadUseCase {
	return &ThreadUseCase{
		negotiationRepo: negotiationRepo,
		propertyRepo:    propertyRepo,
		feed:            feed,
		rateLimiter:     rateLimiter,
	}
}

type CreateThreadInput struct {
	PropertyID  string
	InitialNote string
}

type ThreadResponse struct {
	*entity.Thread
	Property *entity.Property `json:"property,omitempty"`
}

// CreateThread opens (or returns) the negotiation between the caller and the
// current owner of the property. The seller is resolved from the catalog, so
// one thread per (buyer, seller, property) holds by construction.
func (uc *ThreadUseCase) CreateThread(ctx context.Context, buyerWallet string, input CreateThreadInput) (*ThreadResponse, error) {
	buyerWallet = entity.NormalizeWallet(buyerWallet)

	if !uc.rateLimiter.Allow(buyerWallet, "create_thread") {
		return nil, errors.TooManyRequests("Too many new conversations, please wait")
	}

	property, err := uc.propertyRepo.GetByID(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}

	if property.Owner == buyerWallet {
		return nil, errors.BadRequest("You cannot open a negotiation on your own property", nil)
	}

	thread, created, err := uc.negotiationRepo.CreateThreadIfAbsent(ctx, &entity.Thread{
		BuyerWallet:  buyerWallet,
		SellerWallet: property.Owner,
		PropertyID:   property.ID,
	})
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("Thread %s opened: buyer=%s seller=%s property=%s", thread.ID, buyerWallet, property.Owner, property.ID)
	}

	if input.InitialNote != "" {
		if _, err := uc.SendNote(ctx, buyerWallet, thread.ID, input.InitialNote); err != nil {
			return nil, err
		}
	}

	return &ThreadResponse{Thread: thread, Property: property}, nil
}

// SendNote appends a plain chat message. Notes are immutable once created
// and carry no state machine.
func (uc *ThreadUseCase) SendNote(ctx context.Context, wallet, threadID, body string) (*entity.Message, error) {
	wallet = entity.NormalizeWallet(wallet)

	if !uc.rateLimiter.Allow(wallet, "send_message") {
		return nil, errors.TooManyRequests("You are sending messages too quickly")
	}
	if body == "" {
		return nil, errors.Validation("Message body is required", nil)
	}

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.IsParticipant(wallet) {
		return nil, errors.Forbidden("You are not a participant in this thread", nil)
	}
	if thread.Status != entity.ThreadOpen {
		return nil, errors.Conflict("Thread is closed")
	}

	message := &entity.Message{
		ThreadID:     threadID,
		SenderWallet: wallet,
		Kind:         entity.MessageNote,
		Body:         body,
		ReadBy:       []string{wallet},
	}
	if err := uc.negotiationRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	thread.LastMessage = body
	thread.LastMessageAt = message.CreatedAt
	if thread.UnreadCount == nil {
		thread.UnreadCount = make(map[string]int)
	}
	thread.UnreadCount[thread.OtherParty(wallet)]++
	if err := uc.negotiationRepo.UpdateThread(ctx, thread); err != nil {
		logger.Warn("Failed to update thread %s after note: %v", threadID, err)
	}

	uc.feed.Publish(ws.Event{
		Type:      ws.EventMessageCreated,
		ThreadID:  threadID,
		MessageID: message.ID,
		Payload:   message,
		Wallets:   []string{thread.OtherParty(wallet)},
	})

	return message, nil
}

func (uc *ThreadUseCase) ListThreads(ctx context.Context, wallet, role string, limit, offset int) ([]*ThreadResponse, int64, error) {
	wallet = entity.NormalizeWallet(wallet)

	threads, total, err := uc.negotiationRepo.ListThreadsByWallet(ctx, wallet, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var responses []*ThreadResponse
	for _, thread := range threads {
		if role == "buyer" && thread.BuyerWallet != wallet {
			continue
		}
		if role == "seller" && thread.SellerWallet != wallet {
			continue
		}

		resp := &ThreadResponse{Thread: thread}
		if property, err := uc.propertyRepo.GetByID(ctx, thread.PropertyID); err == nil {
			resp.Property = property
		} else {
			logger.Warn("Property %s lookup failed for thread %s: %v", thread.PropertyID, thread.ID, err)
		}
		responses = append(responses, resp)
	}

	return responses, total, nil
}

func (uc *ThreadUseCase) GetThread(ctx context.Context, wallet, threadID string) (*ThreadResponse, error) {
	wallet = entity.NormalizeWallet(wallet)

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.IsParticipant(wallet) {
		return nil, errors.Forbidden("You are not a participant in this thread", nil)
	}

	resp := &ThreadResponse{Thread: thread}
	if property, err := uc.propertyRepo.GetByID(ctx, thread.PropertyID); err == nil {
		resp.Property = property
	}
	return resp, nil
}

func (uc *ThreadUseCase) ListMessages(ctx context.Context, wallet, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	wallet = entity.NormalizeWallet(wallet)

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, 0, err
	}
	if !thread.IsParticipant(wallet) {
		return nil, 0, errors.Forbidden("You are not a participant in this thread", nil)
	}

	return uc.negotiationRepo.ListMessagesByThread(ctx, threadID, limit, offset)
}

// MarkThreadRead acknowledges everything in the thread for the caller.
// Idempotent, and never touches the ledger.
func (uc *ThreadUseCase) MarkThreadRead(ctx context.Context, wallet, threadID string) error {
	wallet = entity.NormalizeWallet(wallet)

	thread, err := uc.negotiationRepo.GetThreadByID(ctx, threadID)
	if err != nil {
		return err
	}
	if !thread.IsParticipant(wallet) {
		return errors.Forbidden("You are not a participant in this thread", nil)
	}

	if err := uc.negotiationRepo.MarkThreadRead(ctx, threadID, wallet); err != nil {
		return err
	}

	uc.feed.Publish(ws.Event{
		Type:     ws.EventThreadRead,
		ThreadID: threadID,
		Status:   "read",
		Payload:  map[string]string{"wallet": wallet},
		Wallets:  []string{thread.OtherParty(wallet)},
	})

	return nil
}
