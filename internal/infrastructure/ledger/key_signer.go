package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"

	"novaland/pkg/errors"
)

// KeySigner signs settlement transfers with a service-held key. Deployments
// that route signing through a user wallet provide their own Signer.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

func NewKeySigner(hexKey string, chainID *big.Int) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Internal("Invalid settlement key", err)
	}
	return &KeySigner{key: key, chainID: chainID}, nil
}

func (s *KeySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
