package issuance

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Allocation is how the raw supply is divided at issuance.
type Allocation struct {
	Creator   uint64
	Liquidity uint64
	Community uint64
}

func (a Allocation) Total() uint64 {
	return a.Creator + a.Liquidity + a.Community
}

// SplitPolicy divides a supply by whole percentages. Integer division
// truncates each tier and the remainder goes to the creator.
type SplitPolicy struct {
	Name string

	CreatorPercent   uint64
	LiquidityPercent uint64
	CommunityPercent uint64
}

// RemainderToCreator is the 20/70/10 split used for every issuance.
var RemainderToCreator = SplitPolicy{
	Name: "remainder_to_creator",

	CreatorPercent:   20,
	LiquidityPercent: 70,
	CommunityPercent: 10,
}

func (p SplitPolicy) Validate() error {
	if p.CreatorPercent+p.LiquidityPercent+p.CommunityPercent != 100 {
		return errors.New("split percentages must sum to 100")
	}
	return nil
}

// Compute splits total. The tiers always sum to total for a policy that
// passes Validate.
func (p SplitPolicy) Compute(total uint64) Allocation {
	allocation := Allocation{
		Creator:   percentOf(total, p.CreatorPercent),
		Liquidity: percentOf(total, p.LiquidityPercent),
		Community: percentOf(total, p.CommunityPercent),
	}
	allocation.Creator += total - allocation.Total()
	return allocation
}

// ComputeSplit splits a raw supply with RemainderToCreator.
func ComputeSplit(total uint64) Allocation {
	return RemainderToCreator.Compute(total)
}

func percentOf(total, percent uint64) uint64 {
	if percent > 100 {
		percent = 100
	}
	hi, lo := bits.Mul64(total, percent)
	quo, _ := bits.Div64(hi, lo, 100)
	return quo
}
