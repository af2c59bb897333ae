package entity

import (
	"strings"
	"time"
)

type ThreadStatus string

const (
	ThreadOpen   ThreadStatus = "open"
	ThreadClosed ThreadStatus = "closed"
)

// Thread is one negotiation between a buyer and a seller over one property.
// Exactly one thread exists per (buyer, seller, property) triple.
type Thread struct {
	ID           string `json:"id" firestore:"id"`
	BuyerWallet  string `json:"buyer_wallet" firestore:"buyerWallet"`
	SellerWallet string `json:"seller_wallet" firestore:"sellerWallet"`
	// Participants duplicates the two wallets for array-contains lookups.
	Participants  []string       `json:"participants" firestore:"participants"`
	PropertyID    string         `json:"property_id" firestore:"propertyId"`
	Status        ThreadStatus   `json:"status" firestore:"status"`
	LastMessage   string         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time      `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount   map[string]int `json:"unread_count" firestore:"unreadCount"`
	CreatedAt     time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time      `json:"updated_at" firestore:"updatedAt"`
}

func (t *Thread) IsParticipant(wallet string) bool {
	wallet = NormalizeWallet(wallet)
	return wallet == t.BuyerWallet || wallet == t.SellerWallet
}

func (t *Thread) OtherParty(wallet string) string {
	if NormalizeWallet(wallet) == t.BuyerWallet {
		return t.SellerWallet
	}
	return t.BuyerWallet
}

// NormalizeWallet lowercases a wallet address so the same address always
// compares equal regardless of checksum casing.
func NormalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}
