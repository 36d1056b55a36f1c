package metadata

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/solana"
	"github.com/code-payments/code-launchpad/pkg/solana/binary"
	"github.com/code-payments/code-launchpad/pkg/solana/system"
)

const instructionCreateMetadataAccountV3 byte = 33

// DataV2 is the on-chain metadata. Creators, collection and uses are always
// encoded as None.
type DataV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

func (d DataV2) Validate() error {
	if len(d.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(d.Symbol) > MaxSymbolLength {
		return ErrSymbolTooLong
	}
	if len(d.URI) > MaxURILength {
		return ErrURITooLong
	}
	return nil
}

type CreateMetadataAccountV3InstructionArgs struct {
	Data      DataV2
	IsMutable bool
}

type CreateMetadataAccountV3InstructionAccounts struct {
	Metadata        ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
}

// NewCreateMetadataAccountV3Instruction creates the metadata account of a
// mint.
//
// Reference: https://github.com/metaplex-foundation/mpl-token-metadata/blob/main/programs/token-metadata/program/src/instruction/metadata.rs
func NewCreateMetadataAccountV3Instruction(
	accounts *CreateMetadataAccountV3InstructionAccounts,
	args *CreateMetadataAccountV3InstructionArgs,
) (solana.Instruction, error) {
	if err := args.Data.Validate(); err != nil {
		return solana.Instruction{}, err
	}

	data := []byte{instructionCreateMetadataAccountV3}
	data = binary.AppendString(data, args.Data.Name)
	data = binary.AppendString(data, args.Data.Symbol)
	data = binary.AppendString(data, args.Data.URI)
	data = binary.AppendUint16(data, args.Data.SellerFeeBasisPoints)
	data = append(data, 0) // creators: None
	data = append(data, 0) // collection: None
	data = append(data, 0) // uses: None
	data = binary.AppendBool(data, args.IsMutable)
	data = append(data, 0) // collection_details: None

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(accounts.Metadata, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewReadonlyAccountMeta(accounts.MintAuthority, true),
		solana.NewAccountMeta(accounts.Payer, true),
		solana.NewReadonlyAccountMeta(accounts.UpdateAuthority, true),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	), nil
}

type DecompiledCreateMetadataAccountV3 struct {
	Metadata        ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey

	Data      DataV2
	IsMutable bool
}

func DecompileCreateMetadataAccountV3(m solana.Message, index int) (*DecompiledCreateMetadataAccountV3, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if !bytes.HasPrefix(i.Data, []byte{instructionCreateMetadataAccountV3}) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) != 7 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	decompiled := &DecompiledCreateMetadataAccountV3{
		Metadata:        m.Accounts[i.Accounts[0]],
		Mint:            m.Accounts[i.Accounts[1]],
		MintAuthority:   m.Accounts[i.Accounts[2]],
		Payer:           m.Accounts[i.Accounts[3]],
		UpdateAuthority: m.Accounts[i.Accounts[4]],
	}

	offset := 1
	for _, dst := range []*string{&decompiled.Data.Name, &decompiled.Data.Symbol, &decompiled.Data.URI} {
		if !binary.GetString(i.Data[offset:], dst, &offset) {
			return nil, errors.New("invalid instruction data: truncated string")
		}
	}

	// seller fee (2), creators, collection, uses, is_mutable, collection_details
	if len(i.Data) != offset+2+5 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	decompiled.Data.SellerFeeBasisPoints = uint16(i.Data[offset]) | uint16(i.Data[offset+1])<<8
	decompiled.IsMutable = i.Data[offset+5] == 1

	return decompiled, nil
}
