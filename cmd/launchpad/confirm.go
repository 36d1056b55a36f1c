package main

import (
	"github.com/spf13/cobra"

	"github.com/code-payments/code-launchpad/pkg/launchpad/common"
	"github.com/code-payments/code-launchpad/pkg/launchpad/confirm"
	"github.com/code-payments/code-launchpad/pkg/solana"
)

var confirmFlags struct {
	signature        string
	reconcileAccount string
	setup            bool
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [options]",
	Short: "Determines the fate of a submitted transaction",
	Long: `
Polls the ledger until the transaction is confirmed, failed, or the attempt
budget runs out. With --reconcile-account, an inconclusive result is
reported as probably confirmed when that account exists.

$ launchpad confirm --signature <signature> --reconcile-account <mint>
`,
	Args: cobra.NoArgs,
	RunE: confirmFunc,
}

func init() {
	f := confirmCmd.Flags()
	f.StringVar(&confirmFlags.signature, "signature", "", "base58 transaction signature")
	f.StringVar(&confirmFlags.reconcileAccount, "reconcile-account", "", "account created by the transaction")
	f.BoolVar(&confirmFlags.setup, "setup", false, "use the longer attempt budget of setup transactions")

	_ = confirmCmd.MarkFlagRequired("signature")
}

type confirmOutput struct {
	Outcome     string `json:"outcome"`
	Source      string `json:"source"`
	Attempts    uint   `json:"attempts"`
	Error       string `json:"error,omitempty"`
	ExplorerURL string `json:"explorer_url"`
}

func confirmFunc(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	sig, err := solana.SignatureFromBase58(confirmFlags.signature)
	if err != nil {
		return err
	}

	opts := confirm.Options{MaxAttempts: confirm.IssuanceMaxAttempts}
	if confirmFlags.setup {
		opts.MaxAttempts = confirm.SetupMaxAttempts
	}
	if len(confirmFlags.reconcileAccount) > 0 {
		account, err := common.NewAccountFromPublicKeyString(confirmFlags.reconcileAccount)
		if err != nil {
			return err
		}
		opts.ReconcileAccount = account.PublicKey().ToBytes()
	}

	deps, err := newDependencies(ctx, conf)
	if err != nil {
		return err
	}
	defer deps.Close()

	outcome := deps.newEngine().Confirm(ctx, sig, opts)

	output := &confirmOutput{
		Outcome:     outcome.Kind.String(),
		Source:      string(outcome.Source),
		Attempts:    outcome.Attempts,
		ExplorerURL: solana.ExplorerURL(sig, deps.cluster),
	}
	outcomeErr := outcome.Err()
	if outcomeErr != nil {
		output.Error = outcomeErr.Error()
	}

	if err := writeJSON(cmd.OutOrStdout(), output); err != nil {
		return err
	}
	return outcomeErr
}
