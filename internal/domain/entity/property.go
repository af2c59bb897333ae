package entity

// Property mirrors a listing held by the on-chain catalog. It is owned and
// mutated exclusively by the ledger; this service only reads it, and observes
// ownership changes as an effect of settlement.
type Property struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner"`
	Price    float64 `json:"price"`
	Title    string  `json:"title,omitempty"`
	IsListed bool    `json:"is_listed"`
}
