package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/code-payments/code-launchpad/pkg/app"
	"github.com/code-payments/code-launchpad/pkg/launchpad/issuance"
)

var issueFlags struct {
	keypair     string
	name        string
	symbol      string
	description string
	decimals    uint8
	supply      uint64
	image       string
	imageURI    string
	website     string
	twitter     string
	telegram    string
}

var issueCmd = &cobra.Command{
	Use:   "issue [options]",
	Short: "Issues a fixed supply token",
	Long: `
Issues a fixed supply token in a single transaction. The supply is split
between the creator and the mint's liquidity and community vaults, and the
mint authority is revoked.

$ launchpad issue --keypair ~/.config/solana/id.json \
    --name "Example" --symbol EXM --supply 1000000000 --image ./logo.png
`,
	Args: cobra.NoArgs,
	RunE: issueFunc,
}

func init() {
	f := issueCmd.Flags()
	f.StringVar(&issueFlags.keypair, "keypair", "", "creator keypair file, as a JSON byte array or base58")
	f.StringVar(&issueFlags.name, "name", "", "token name")
	f.StringVar(&issueFlags.symbol, "symbol", "", "token symbol")
	f.StringVar(&issueFlags.description, "description", "", "token description")
	f.Uint8Var(&issueFlags.decimals, "decimals", 6, "token decimals")
	f.Uint64Var(&issueFlags.supply, "supply", 1_000_000_000, "total supply in whole units")
	f.StringVar(&issueFlags.image, "image", "", "image file to publish with the metadata")
	f.StringVar(&issueFlags.imageURI, "image-uri", "", "already hosted image uri")
	f.StringVar(&issueFlags.website, "website", "", "project website")
	f.StringVar(&issueFlags.twitter, "twitter", "", "project twitter")
	f.StringVar(&issueFlags.telegram, "telegram", "", "project telegram")

	_ = issueCmd.MarkFlagRequired("keypair")
	_ = issueCmd.MarkFlagRequired("name")
	_ = issueCmd.MarkFlagRequired("symbol")
}

type issueOutput struct {
	Result            string `json:"result"`
	Reason            string `json:"reason"`
	Mint              string `json:"mint,omitempty"`
	TransactionID     string `json:"transaction_id,omitempty"`
	MetadataURI       string `json:"metadata_uri,omitempty"`
	MetadataTier      string `json:"metadata_tier,omitempty"`
	CreatorAmount     uint64 `json:"creator_amount,omitempty"`
	LiquidityAmount   uint64 `json:"liquidity_amount,omitempty"`
	CommunityAmount   uint64 `json:"community_amount,omitempty"`
	State             string `json:"state"`
	ProbablyConfirmed bool   `json:"probably_confirmed,omitempty"`
	ExplorerURL       string `json:"explorer_url,omitempty"`
}

func issueFunc(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	creator, err := loadKeypair(issueFlags.keypair)
	if err != nil {
		return err
	}
	signer, err := issuance.NewKeypairSigner(creator)
	if err != nil {
		return err
	}

	params := &issuance.Params{
		Name:        issueFlags.name,
		Symbol:      issueFlags.symbol,
		Description: issueFlags.description,
		ImageURI:    issueFlags.imageURI,
		Decimals:    issueFlags.decimals,
		TotalSupply: issueFlags.supply,
		Website:     issueFlags.website,
		Twitter:     issueFlags.twitter,
		Telegram:    issueFlags.telegram,
	}
	if len(issueFlags.image) > 0 {
		params.Image, err = app.LoadFile(issueFlags.image)
		if err != nil {
			return err
		}
		params.ImageContentType = http.DetectContentType(params.Image)
	}

	deps, err := newDependencies(ctx, conf)
	if err != nil {
		return err
	}
	defer deps.Close()

	result, issueErr := deps.newIssuanceService().Issue(ctx, creator, params, signer)
	if err := writeJSON(cmd.OutOrStdout(), toIssueOutput(result)); err != nil {
		return err
	}
	return issueErr
}

func toIssueOutput(result *issuance.Result) *issueOutput {
	return &issueOutput{
		Result:            result.Code.String(),
		Reason:            result.Reason(),
		Mint:              result.Mint,
		TransactionID:     result.TransactionID,
		MetadataURI:       result.MetadataURI,
		MetadataTier:      string(result.MetadataTier),
		CreatorAmount:     result.Allocation.Creator,
		LiquidityAmount:   result.Allocation.Liquidity,
		CommunityAmount:   result.Allocation.Community,
		State:             result.State.String(),
		ProbablyConfirmed: result.ProbablyConfirmed,
		ExplorerURL:       result.ExplorerURL,
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
