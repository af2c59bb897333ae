package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"novaland/internal/domain/entity"
	"novaland/internal/domain/repository"
	"novaland/pkg/errors"
	"novaland/pkg/logger"
)

type firestoreNegotiationRepository struct {
	client *firestore.Client
}

func NewFirestoreNegotiationRepository(client *firestore.Client) repository.NegotiationRepository {
	return &firestoreNegotiationRepository{
		client: client,
	}
}

// threadKey derives the deterministic document id for a negotiation triple,
// so two concurrent creates for the same triple land on the same document
// and the uniqueness invariant is enforced by the store itself.
func threadKey(buyer, seller, propertyID string) string {
	return fmt.Sprintf("%s_%s_%s", buyer, seller, propertyID)
}

func (r *firestoreNegotiationRepository) CreateThreadIfAbsent(ctx context.Context, thread *entity.Thread) (*entity.Thread, bool, error) {
	thread.BuyerWallet = entity.NormalizeWallet(thread.BuyerWallet)
	thread.SellerWallet = entity.NormalizeWallet(thread.SellerWallet)
	thread.ID = threadKey(thread.BuyerWallet, thread.SellerWallet, thread.PropertyID)
	thread.Participants = []string{thread.BuyerWallet, thread.SellerWallet}

	docRef := r.client.Collection("threads").Doc(thread.ID)

	var existing *entity.Thread
	created := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err == nil {
			var t entity.Thread
			if err := doc.DataTo(&t); err != nil {
				return errors.Internal("Failed to parse thread data", err)
			}
			existing = &t
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return errors.Internal("Failed to look up thread", err)
		}

		now := time.Now()
		thread.Status = entity.ThreadOpen
		thread.CreatedAt = now
		thread.UpdatedAt = now
		thread.LastMessageAt = now
		if thread.UnreadCount == nil {
			thread.UnreadCount = make(map[string]int)
		}
		created = true
		return tx.Set(docRef, thread)
	})
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		return existing, false, nil
	}
	return thread, created, nil
}

func (r *firestoreNegotiationRepository) GetThreadByID(ctx context.Context, id string) (*entity.Thread, error) {
	doc, err := r.client.Collection("threads").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Thread", nil)
		}
		return nil, errors.Internal("Failed to get thread", err)
	}

	var thread entity.Thread
	if err := doc.DataTo(&thread); err != nil {
		return nil, errors.Internal("Failed to parse thread data", err)
	}
	return &thread, nil
}

func (r *firestoreNegotiationRepository) ListThreadsByWallet(ctx context.Context, wallet string, limit, offset int) ([]*entity.Thread, int64, error) {
	wallet = entity.NormalizeWallet(wallet)
	query := r.client.Collection("threads").
		Where("participants", "array-contains", wallet).
		OrderBy("lastMessageAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Failed to fetch threads for %s: %v", wallet, err)
		return nil, 0, errors.Internal("Failed to fetch threads", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var threads []*entity.Thread
	for i := start; i < end; i++ {
		var thread entity.Thread
		if err := allDocs[i].DataTo(&thread); err != nil {
			logger.Warn("Skipping malformed thread doc %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		threads = append(threads, &thread)
	}

	return threads, total, nil
}

func (r *firestoreNegotiationRepository) UpdateThread(ctx context.Context, thread *entity.Thread) error {
	thread.UpdatedAt = time.Now()
	thread.Participants = []string{thread.BuyerWallet, thread.SellerWallet}

	_, err := r.client.Collection("threads").Doc(thread.ID).Set(ctx, thread)
	if err != nil {
		return errors.Internal("Failed to update thread", err)
	}
	return nil
}

func (r *firestoreNegotiationRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.SenderWallet = entity.NormalizeWallet(message.SenderWallet)
	message.CreatedAt = time.Now()

	_, err := r.messageRef(message.ThreadID, message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

// InsertOffer creates the pending offer inside a transaction that first
// reads the thread and every open offer in it, so the single-pending
// invariant holds under concurrent submissions.
func (r *firestoreNegotiationRepository) InsertOffer(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.SenderWallet = entity.NormalizeWallet(message.SenderWallet)
	message.Kind = entity.MessageOffer
	message.OfferStatus = entity.OfferPending

	threadRef := r.client.Collection("threads").Doc(message.ThreadID)
	msgRef := threadRef.Collection("messages").Doc(message.ID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		threadDoc, err := tx.Get(threadRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Thread", nil)
			}
			return errors.Internal("Failed to get thread", err)
		}

		var thread entity.Thread
		if err := threadDoc.DataTo(&thread); err != nil {
			return errors.Internal("Failed to parse thread data", err)
		}
		if thread.Status != entity.ThreadOpen {
			return errors.Conflict("Thread is closed")
		}

		openQuery := threadRef.Collection("messages").
			Where("kind", "==", string(entity.MessageOffer)).
			Where("offerStatus", "in", []string{string(entity.OfferPending), string(entity.OfferSettling)})
		open, err := tx.Documents(openQuery).GetAll()
		if err != nil {
			return errors.Internal("Failed to check open offers", err)
		}
		if len(open) > 0 {
			return errors.Conflict("An offer is already pending in this thread")
		}

		message.CreatedAt = time.Now()
		if err := tx.Create(msgRef, message); err != nil {
			return errors.Internal("Failed to insert offer", err)
		}

		thread.LastMessage = fmt.Sprintf("Offer: %g ETH", message.Price)
		thread.LastMessageAt = message.CreatedAt
		thread.UpdatedAt = message.CreatedAt
		if thread.UnreadCount == nil {
			thread.UnreadCount = make(map[string]int)
		}
		thread.UnreadCount[thread.OtherParty(message.SenderWallet)]++
		return tx.Set(threadRef, &thread)
	})
}

func (r *firestoreNegotiationRepository) GetMessageByID(ctx context.Context, threadID, messageID string) (*entity.Message, error) {
	doc, err := r.messageRef(threadID, messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", nil)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreNegotiationRepository) ListMessagesByThread(ctx context.Context, threadID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("threads").Doc(threadID).Collection("messages").
		OrderBy("createdAt", firestore.Asc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Failed to fetch messages for thread %s: %v", threadID, err)
		return nil, 0, errors.Internal("Failed to fetch messages", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var messages []*entity.Message
	for i := start; i < end; i++ {
		var message entity.Message
		if err := allDocs[i].DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message doc %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreNegotiationRepository) MarkThreadRead(ctx context.Context, threadID, wallet string) error {
	wallet = entity.NormalizeWallet(wallet)
	threadRef := r.client.Collection("threads").Doc(threadID)

	iter := threadRef.Collection("messages").Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			continue
		}
		if message.SenderWallet == wallet || message.ReadByWallet(wallet) {
			continue
		}

		message.ReadBy = append(message.ReadBy, wallet)
		if _, err := doc.Ref.Set(ctx, &message); err != nil {
			return errors.Internal("Failed to mark message read", err)
		}
	}

	_, err := threadRef.Update(ctx, []firestore.Update{
		{Path: "unreadCount." + wallet, Value: 0},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return errors.Internal("Failed to reset unread count", err)
	}
	return nil
}

func (r *firestoreNegotiationRepository) CASOfferStatus(ctx context.Context, threadID, messageID string, expected, next entity.OfferStatus, transferHash string) error {
	msgRef := r.messageRef(threadID, messageID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(msgRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer message", nil)
			}
			return errors.Internal("Failed to get offer message", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if !message.IsOffer() {
			return errors.BadRequest("Message is not an offer", nil)
		}
		// Strict: holding next already is still a conflict. A transition
		// must be claimed exactly once; idempotent re-apply belongs to
		// CommitAcceptance only.
		if message.OfferStatus != expected {
			return errors.Conflict(fmt.Sprintf("Offer is %s, not %s", message.OfferStatus, expected))
		}

		message.OfferStatus = next
		message.TransferHash = transferHash
		return tx.Set(msgRef, &message)
	})
}

func (r *firestoreNegotiationRepository) SetOfferTransferHash(ctx context.Context, threadID, messageID, transferHash string) error {
	_, err := r.messageRef(threadID, messageID).Update(ctx, []firestore.Update{
		{Path: "transferHash", Value: transferHash},
	})
	if err != nil {
		return errors.Internal("Failed to record transfer hash", err)
	}
	return nil
}

// CommitAcceptance moves the offer to accepted and closes the thread in one
// transaction. Safe to re-apply.
func (r *firestoreNegotiationRepository) CommitAcceptance(ctx context.Context, threadID, messageID string) error {
	threadRef := r.client.Collection("threads").Doc(threadID)
	msgRef := threadRef.Collection("messages").Doc(messageID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		msgDoc, err := tx.Get(msgRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer message", nil)
			}
			return errors.Internal("Failed to get offer message", err)
		}

		var message entity.Message
		if err := msgDoc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if message.OfferStatus == entity.OfferAccepted {
			return nil
		}

		threadDoc, err := tx.Get(threadRef)
		if err != nil {
			return errors.Internal("Failed to get thread", err)
		}
		var thread entity.Thread
		if err := threadDoc.DataTo(&thread); err != nil {
			return errors.Internal("Failed to parse thread data", err)
		}

		now := time.Now()
		message.OfferStatus = entity.OfferAccepted
		message.SettledAt = &now
		if err := tx.Set(msgRef, &message); err != nil {
			return errors.Internal("Failed to commit offer acceptance", err)
		}

		thread.Status = entity.ThreadClosed
		thread.LastMessage = fmt.Sprintf("Offer accepted at %g ETH", message.Price)
		thread.LastMessageAt = now
		thread.UpdatedAt = now
		return tx.Set(threadRef, &thread)
	})
}

func (r *firestoreNegotiationRepository) ListSettlingOffers(ctx context.Context) ([]*entity.Message, error) {
	query := r.client.CollectionGroup("messages").
		Where("kind", "==", string(entity.MessageOffer)).
		Where("offerStatus", "==", string(entity.OfferSettling))

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query settling offers", err)
	}

	var offers []*entity.Message
	for _, doc := range docs {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed settling offer %s: %v", doc.Ref.ID, err)
			continue
		}
		offers = append(offers, &message)
	}
	return offers, nil
}

func (r *firestoreNegotiationRepository) messageRef(threadID, messageID string) *firestore.DocumentRef {
	return r.client.Collection("threads").Doc(threadID).Collection("messages").Doc(messageID)
}
