package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"novaland/internal/domain/entity"
	"novaland/internal/domain/repository"
	"novaland/pkg/errors"
)

// PropertyCatalog reads listings straight off the marketplace contract with a
// single GetProperty call per lookup.
type PropertyCatalog struct {
	client *EthClient
}

func NewPropertyCatalog(client *EthClient) repository.PropertyRepository {
	return &PropertyCatalog{client: client}
}

func (p *PropertyCatalog) GetByID(ctx context.Context, id string) (*entity.Property, error) {
	productID, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return nil, errors.Validation("Invalid property id", nil)
	}

	var out []interface{}
	err := p.client.contract.Call(&bind.CallOpts{Context: ctx}, &out, "GetProperty", productID)
	if err != nil {
		return nil, errors.Internal("Failed to read property from contract", err)
	}
	if len(out) < 5 {
		return nil, errors.NotFound("Property", nil)
	}

	returnedID, _ := out[0].(*big.Int)
	owner, _ := out[1].(common.Address)
	price, _ := out[2].(*big.Int)
	title, _ := out[3].(string)
	isListed, _ := out[4].(bool)

	if returnedID == nil || returnedID.Sign() == 0 {
		return nil, errors.NotFound("Property", nil)
	}

	return &entity.Property{
		ID:       returnedID.String(),
		Owner:    entity.NormalizeWallet(owner.Hex()),
		Price:    WeiToEth(price),
		Title:    title,
		IsListed: isListed,
	}, nil
}
