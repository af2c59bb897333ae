package ledger

import (
	"context"
	goerrors "errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"

	"novaland/pkg/errors"
	"novaland/pkg/logger"
)

// Minimal surface of the Novaland marketplace contract: one direct property
// lookup and the payable purchase entrypoint.
const novalandABI = `[
  {"type":"function","name":"GetProperty","stateMutability":"view",
   "inputs":[{"name":"productID","type":"uint256"}],
   "outputs":[
     {"name":"productID","type":"uint256"},
     {"name":"owner","type":"address"},
     {"name":"price","type":"uint256"},
     {"name":"propertyTitle","type":"string"},
     {"name":"isListed","type":"bool"}]},
  {"type":"function","name":"PurchaseProperty","stateMutability":"payable",
   "inputs":[
     {"name":"productID","type":"uint256"},
     {"name":"buyer","type":"address"}],
   "outputs":[]}
]`

// Signer supplies transaction options for the settlement account. It is an
// opaque capability: the wallet mechanics behind it are not this service's
// concern.
type Signer interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

type EthClient struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	signer       Signer
	pollInterval time.Duration
}

func NewEthClient(rpcURL, contractAddress string, signer Signer) (*EthClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Internal("Failed to connect to chain RPC", err)
	}

	parsed, err := abi.JSON(strings.NewReader(novalandABI))
	if err != nil {
		return nil, errors.Internal("Failed to parse contract ABI", err)
	}

	contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsed, client, client, client)

	return &EthClient{
		client:       client,
		contract:     contract,
		signer:       signer,
		pollInterval: 5 * time.Second,
	}, nil
}

func (c *EthClient) SubmitTransfer(ctx context.Context, propertyID, buyerWallet string, amount float64) (TransferHandle, error) {
	id, ok := new(big.Int).SetString(propertyID, 10)
	if !ok {
		return "", errors.Validation("Invalid property id", nil)
	}

	opts, err := c.signer.TransactOpts(ctx)
	if err != nil {
		if goerrors.Is(err, ErrDeclined) {
			return "", errors.Ledger(errors.LedgerRejectedByUser, "Transfer was declined by the signer", err)
		}
		return "", errors.Ledger(errors.LedgerSignerUnavailable, "Signer is unavailable", err)
	}
	opts.Context = ctx
	opts.Value = EthToWei(amount)

	tx, err := c.contract.Transact(opts, "PurchaseProperty", id, common.HexToAddress(buyerWallet))
	if err != nil {
		return "", classifySubmitError(err)
	}

	logger.Info("Transfer broadcast: property=%s buyer=%s amount=%f tx=%s", propertyID, buyerWallet, amount, tx.Hash().Hex())
	return TransferHandle(tx.Hash().Hex()), nil
}

func (c *EthClient) AwaitConfirmation(ctx context.Context, handle TransferHandle) (*Confirmation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	hash := common.HexToHash(string(handle))
	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return confirmationFromReceipt(handle, receipt), nil
		}
		if !goerrors.Is(err, ethereum.NotFound) {
			logger.Warn("Receipt poll failed for %s, retrying: %v", handle, err)
		}

		select {
		case <-ctx.Done():
			return &Confirmation{Handle: handle, Outcome: OutcomeTimeout, Reason: ctx.Err().Error()}, nil
		case <-ticker.C:
		}
	}
}

func (c *EthClient) TransferStatus(ctx context.Context, handle TransferHandle) (*Confirmation, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(string(handle)))
	if err != nil {
		if goerrors.Is(err, ethereum.NotFound) {
			return &Confirmation{Handle: handle, Outcome: OutcomePending}, nil
		}
		return nil, errors.Ledger(errors.LedgerSignerUnavailable, "Failed to query transfer status", err)
	}
	return confirmationFromReceipt(handle, receipt), nil
}

func confirmationFromReceipt(handle TransferHandle, receipt *types.Receipt) *Confirmation {
	conf := &Confirmation{Handle: handle, BlockNumber: receipt.BlockNumber.Uint64()}
	if receipt.Status == types.ReceiptStatusSuccessful {
		conf.Outcome = OutcomeConfirmed
	} else {
		conf.Outcome = OutcomeReverted
		conf.Reason = "transfer reverted on chain"
	}
	return conf
}

func classifySubmitError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return errors.Ledger(errors.LedgerInsufficientFunds, "Buyer has insufficient funds for the transfer", err)
	case strings.Contains(msg, "not listed"):
		return errors.Ledger(errors.LedgerNotListed, "Property is not listed for sale", err)
	default:
		return errors.Ledger(errors.LedgerSignerUnavailable, "Failed to broadcast transfer", err)
	}
}

func EthToWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(new(big.Float).SetFloat64(amount), big.NewFloat(params.Ether)).Int(nil)
	return wei
}

func WeiToEth(wei *big.Int) float64 {
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return eth
}
