package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	err := Conflict("offer already open")
	assert.True(t, Is(err, "CONFLICT"))
	assert.False(t, Is(err, "NOT_FOUND"))
	assert.False(t, Is(nil, "CONFLICT"))

	wrapped := fmt.Errorf("handling request: %w", StaleState("price changed"))
	assert.True(t, Is(wrapped, "STALE_STATE"))
}

func TestIsLedger(t *testing.T) {
	assert.True(t, IsLedger(Ledger(LedgerInsufficientFunds, "balance too low", nil)))
	assert.True(t, IsLedger(Ledger(LedgerTimeout, "no receipt", nil)))
	assert.False(t, IsLedger(Conflict("nope")))
	assert.False(t, IsLedger(nil))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusConflict, Conflict("x").Status)
	assert.Equal(t, http.StatusConflict, StaleState("x").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("x", nil).Status)
	assert.Equal(t, http.StatusBadGateway, Ledger(LedgerReverted, "x", nil).Status)
	assert.Equal(t, http.StatusTooManyRequests, TooManyRequests("x").Status)
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("rpc: connection refused")
	err := Ledger(LedgerSignerUnavailable, "signer offline", cause)
	assert.Equal(t, cause, err.Unwrap())
}
