package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	async_distribution "github.com/code-payments/code-launchpad/pkg/launchpad/async/distribution"
	"github.com/code-payments/code-launchpad/pkg/launchpad/distribution"
)

var distributeFlags struct {
	mint    string
	exclude string
	all     bool
}

var distributeCmd = &cobra.Command{
	Use:   "distribute [options]",
	Short: "Distributes a community vault to the registered creators",
	Long: `
Pays the balance of a mint's community vault out evenly to every registered
creator, in batches of transfers.

# Distributes a single mint, skipping its creator
$ launchpad distribute --mint <mint> --exclude <creator>

# Runs one round of the scheduled worker over every registered mint
$ launchpad distribute --all
`,
	Args: cobra.NoArgs,
	RunE: distributeFunc,
}

func init() {
	f := distributeCmd.Flags()
	f.StringVar(&distributeFlags.mint, "mint", "", "mint whose community vault is distributed")
	f.StringVar(&distributeFlags.exclude, "exclude", "", "recipient to skip, usually the mint's creator")
	f.BoolVar(&distributeFlags.all, "all", false, "distribute every registered mint")
}

type distributeOutput struct {
	Mint             string   `json:"mint"`
	Reason           string   `json:"reason"`
	Pooled           uint64   `json:"pooled"`
	RecipientsPaid   int      `json:"recipients_paid"`
	TotalAmount      uint64   `json:"total_amount"`
	BatchesSubmitted int      `json:"batches_submitted"`
	BatchesFailed    int      `json:"batches_failed"`
	Signatures       []string `json:"signatures,omitempty"`
}

func distributeFunc(cmd *cobra.Command, _ []string) error {
	if distributeFlags.all == (len(distributeFlags.mint) > 0) {
		return errors.New("exactly one of --mint or --all is required")
	}

	ctx := commandContext(cmd)

	deps, err := newDependencies(ctx, conf)
	if err != nil {
		return err
	}
	defer deps.Close()

	distributor, err := deps.newDistributor()
	if err != nil {
		return err
	}

	var summaries []*distribution.Summary
	if distributeFlags.all {
		worker := async_distribution.New(distributor, deps.store, deps.locks, async_distribution.WithEnvConfigs())
		summaries, err = worker.RunOnce(ctx)
	} else {
		var summary *distribution.Summary
		summary, err = distributor.Run(ctx, distributeFlags.mint, distributeFlags.exclude)
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}

	output := make([]*distributeOutput, 0, len(summaries))
	for _, summary := range summaries {
		output = append(output, toDistributeOutput(summary))
	}
	if writeErr := writeJSON(cmd.OutOrStdout(), output); writeErr != nil {
		return writeErr
	}
	return err
}

func toDistributeOutput(summary *distribution.Summary) *distributeOutput {
	return &distributeOutput{
		Mint:             summary.Mint,
		Reason:           summary.Reason(),
		Pooled:           summary.Pooled,
		RecipientsPaid:   summary.RecipientsPaid,
		TotalAmount:      summary.TotalAmount,
		BatchesSubmitted: summary.BatchesSubmitted,
		BatchesFailed:    summary.BatchesFailed,
		Signatures:       summary.Signatures,
	}
}
