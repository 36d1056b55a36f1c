package main

import (
	"github.com/spf13/cobra"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/vault"
)

var deriveVaultFlags struct {
	mint    string
	purpose string
}

var deriveVaultCmd = &cobra.Command{
	Use:   "derive-vault [options]",
	Short: "Prints the derived vault addresses of a mint",
	Long: `
Derives the vaults of a mint from the configured vault seed. Without
--purpose, every vault is printed.

$ launchpad derive-vault --mint <mint> --purpose community
`,
	Args: cobra.NoArgs,
	RunE: deriveVaultFunc,
}

func init() {
	f := deriveVaultCmd.Flags()
	f.StringVar(&deriveVaultFlags.mint, "mint", "", "mint address")
	f.StringVar(&deriveVaultFlags.purpose, "purpose", "", "liquidity or community")

	_ = deriveVaultCmd.MarkFlagRequired("mint")
}

type vaultOutput struct {
	Purpose      string `json:"purpose"`
	Address      string `json:"address"`
	TokenAccount string `json:"token_account"`
}

func deriveVaultFunc(cmd *cobra.Command, _ []string) error {
	deriver, err := vault.NewDeriver(conf.VaultSeed)
	if err != nil {
		return err
	}

	output, err := deriveVaults(deriver, deriveVaultFlags.mint, deriveVaultFlags.purpose)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), output)
}

func deriveVaults(deriver *vault.Deriver, mintAddress, purpose string) ([]*vaultOutput, error) {
	purposes := []vault.Purpose{vault.PurposeLiquidity, vault.PurposeCommunity}
	if len(purpose) > 0 {
		purposes = []vault.Purpose{vault.Purpose(purpose)}
	}

	mint, err := common.NewAccountFromPublicKeyString(mintAddress)
	if err != nil {
		return nil, vault.ErrInvalidMint
	}

	var output []*vaultOutput
	for _, p := range purposes {
		account, err := deriver.Derive(p, mint)
		if err != nil {
			return nil, err
		}

		ata, err := account.ToAssociatedTokenAccount(mint)
		if err != nil {
			return nil, err
		}

		output = append(output, &vaultOutput{
			Purpose:      string(p),
			Address:      account.PublicKey().ToBase58(),
			TokenAccount: ata.PublicKey().ToBase58(),
		})
	}
	return output, nil
}
