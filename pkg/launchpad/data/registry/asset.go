package registry

import (
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
)

// Asset is a token issued through the launchpad, keyed by mint.
type Asset struct {
	Id uint64

	Mint    string
	Creator string

	Name     string
	Symbol   string
	Decimals uint8
	Supply   uint64 // raw units

	ImageURI     string
	MetadataURI  string
	MetadataTier string

	TransactionID string

	CreatedAt time.Time
}

func (a *Asset) Validate() error {
	if a == nil {
		return errors.New("asset is nil")
	}

	if _, err := common.NewAccountFromPublicKeyString(a.Mint); err != nil {
		return errors.Wrap(err, "invalid mint")
	}
	if _, err := common.NewAccountFromPublicKeyString(a.Creator); err != nil {
		return errors.Wrap(err, "invalid creator")
	}

	if len(a.Name) == 0 {
		return errors.New("name is required")
	}
	if len(a.Symbol) == 0 {
		return errors.New("symbol is required")
	}
	if a.Supply == 0 {
		return errors.New("supply is required")
	}
	if len(a.MetadataURI) == 0 {
		return errors.New("metadata uri is required")
	}
	if len(a.TransactionID) == 0 {
		return errors.New("transaction id is required")
	}

	return nil
}

func (a *Asset) Clone() Asset {
	return Asset{
		Id:            a.Id,
		Mint:          a.Mint,
		Creator:       a.Creator,
		Name:          a.Name,
		Symbol:        a.Symbol,
		Decimals:      a.Decimals,
		Supply:        a.Supply,
		ImageURI:      a.ImageURI,
		MetadataURI:   a.MetadataURI,
		MetadataTier:  a.MetadataTier,
		TransactionID: a.TransactionID,
		CreatedAt:     a.CreatedAt,
	}
}

func (a *Asset) CopyTo(dst *Asset) {
	dst.Id = a.Id
	dst.Mint = a.Mint
	dst.Creator = a.Creator
	dst.Name = a.Name
	dst.Symbol = a.Symbol
	dst.Decimals = a.Decimals
	dst.Supply = a.Supply
	dst.ImageURI = a.ImageURI
	dst.MetadataURI = a.MetadataURI
	dst.MetadataTier = a.MetadataTier
	dst.TransactionID = a.TransactionID
	dst.CreatedAt = a.CreatedAt
}
