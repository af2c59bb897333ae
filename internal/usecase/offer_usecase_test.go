package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novaland/internal/domain/entity"
	"novaland/internal/infrastructure/ledger"
	"novaland/internal/infrastructure/ratelimit"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
)

type offerFixture struct {
	repo   *memoryNegotiationRepo
	props  *memoryPropertyRepo
	feed   *ws.Feed
	uc     *OfferUseCase
	thread *entity.Thread
}

func newOfferFixture(t *testing.T) *offerFixture {
	t.Helper()

	repo := newMemoryNegotiationRepo()
	props := newMemoryPropertyRepo(&entity.Property{
		ID: propertyID, Owner: sellerWallet, Price: 2.5, Title: "Lakeside plot", IsListed: true,
	})
	feed := ws.NewFeed()
	chain := &scriptedLedger{
		handle:       "0xhash1",
		confirmation: &ledger.Confirmation{Handle: "0xhash1", Outcome: ledger.OutcomeConfirmed},
	}
	settlement := NewSettlementUseCase(repo, props, chain, feed, time.Second)

	thread, _, err := repo.CreateThreadIfAbsent(context.Background(), &entity.Thread{
		BuyerWallet:  buyerWallet,
		SellerWallet: sellerWallet,
		PropertyID:   propertyID,
	})
	require.NoError(t, err)

	return &offerFixture{
		repo:   repo,
		props:  props,
		feed:   feed,
		uc:     NewOfferUseCase(repo, props, settlement, feed, ratelimit.NewRateLimiter()),
		thread: thread,
	}
}

func TestSubmitOffer(t *testing.T) {
	t.Run("success snapshots listing price", func(t *testing.T) {
		f := newOfferFixture(t)
		sub := f.feed.Subscribe(sellerWallet)
		defer sub.Close()

		offer, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		require.NoError(t, err)

		assert.Equal(t, entity.OfferPending, offer.OfferStatus)
		assert.Equal(t, 2.0, offer.Price)
		assert.Equal(t, 2.5, offer.ListPrice)

		event := waitForEvent(t, sub, ws.EventOfferCreated)
		assert.Equal(t, offer.ID, event.MessageID)
	})

	t.Run("rejects non-positive and non-finite prices", func(t *testing.T) {
		f := newOfferFixture(t)

		for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			_, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: price})
			assert.True(t, errors.Is(err, "VALIDATION_ERROR"), "price %v should be rejected: %v", price, err)
		}
	})

	t.Run("only the buyer may offer", func(t *testing.T) {
		f := newOfferFixture(t)

		_, err := f.uc.SubmitOffer(context.Background(), sellerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		assert.True(t, errors.Is(err, "FORBIDDEN"), "seller offer should be forbidden: %v", err)
	})

	t.Run("second open offer conflicts", func(t *testing.T) {
		f := newOfferFixture(t)

		_, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		require.NoError(t, err)

		_, err = f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.1})
		assert.True(t, errors.Is(err, "CONFLICT"), "expected conflict: %v", err)
	})

	t.Run("new offer allowed after rejection", func(t *testing.T) {
		f := newOfferFixture(t)

		first, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		require.NoError(t, err)
		_, err = f.uc.RejectOffer(context.Background(), sellerWallet, f.thread.ID, first.ID)
		require.NoError(t, err)

		_, err = f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.2})
		assert.NoError(t, err)
	})

	t.Run("delisted property", func(t *testing.T) {
		f := newOfferFixture(t)
		f.props.set(&entity.Property{ID: propertyID, Owner: sellerWallet, Price: 2.5, IsListed: false})

		_, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		assert.True(t, errors.Is(err, "STALE_STATE"), "expected stale state: %v", err)
	})
}

func TestRejectOffer(t *testing.T) {
	t.Run("seller rejects, thread stays open", func(t *testing.T) {
		f := newOfferFixture(t)
		sub := f.feed.Subscribe(buyerWallet)
		defer sub.Close()

		offer, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		require.NoError(t, err)

		rejected, err := f.uc.RejectOffer(context.Background(), sellerWallet, f.thread.ID, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.OfferRejected, rejected.OfferStatus)

		waitForEvent(t, sub, ws.EventOfferRejected)

		thread, _ := f.repo.GetThreadByID(context.Background(), f.thread.ID)
		assert.Equal(t, entity.ThreadOpen, thread.Status)
	})

	t.Run("buyer cannot reject", func(t *testing.T) {
		f := newOfferFixture(t)

		offer, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		require.NoError(t, err)

		_, err = f.uc.RejectOffer(context.Background(), buyerWallet, f.thread.ID, offer.ID)
		assert.True(t, errors.Is(err, "FORBIDDEN"), "buyer reject should be forbidden: %v", err)
	})

	t.Run("rejecting a note fails", func(t *testing.T) {
		f := newOfferFixture(t)

		note := &entity.Message{ThreadID: f.thread.ID, SenderWallet: buyerWallet, Kind: entity.MessageNote, Body: "hello"}
		require.NoError(t, f.repo.CreateMessage(context.Background(), note))

		_, err := f.uc.RejectOffer(context.Background(), sellerWallet, f.thread.ID, note.ID)
		assert.True(t, errors.Is(err, "BAD_REQUEST"), "expected bad request: %v", err)
	})

	t.Run("rejecting an already rejected offer conflicts", func(t *testing.T) {
		f := newOfferFixture(t)

		offer, err := f.uc.SubmitOffer(context.Background(), buyerWallet, f.thread.ID, SubmitOfferInput{Price: 2.0})
		require.NoError(t, err)
		_, err = f.uc.RejectOffer(context.Background(), sellerWallet, f.thread.ID, offer.ID)
		require.NoError(t, err)

		_, err = f.uc.RejectOffer(context.Background(), sellerWallet, f.thread.ID, offer.ID)
		assert.True(t, errors.Is(err, "CONFLICT"), "expected conflict: %v", err)
	})
}
