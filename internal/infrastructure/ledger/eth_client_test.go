package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEthToWei(t *testing.T) {
	cases := []struct {
		eth float64
		wei string
	}{
		{1, "1000000000000000000"},
		{0.5, "500000000000000000"},
		{2.5, "2500000000000000000"},
		{0.000000001, "1000000000"},
	}

	for _, tc := range cases {
		want, ok := new(big.Int).SetString(tc.wei, 10)
		require.True(t, ok)
		assert.Equal(t, 0, EthToWei(tc.eth).Cmp(want), "EthToWei(%v)", tc.eth)
	}
}

func TestWeiToEthRoundTrip(t *testing.T) {
	for _, eth := range []float64{0.1, 1, 2.5, 42} {
		assert.InDelta(t, eth, WeiToEth(EthToWei(eth)), 1e-9)
	}
}
