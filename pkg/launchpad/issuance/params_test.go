package issuance

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Validate(t *testing.T) {
	require.NoError(t, newTestParams().Validate())

	for _, tc := range []struct {
		name   string
		mutate func(p *Params)
	}{
		{"empty name", func(p *Params) { p.Name = "" }},
		{"empty symbol", func(p *Params) { p.Symbol = "" }},
		{"invalid utf-8", func(p *Params) { p.Name = string([]byte{0xff, 0xfe}) }},
		{"too many decimals", func(p *Params) { p.Decimals = 10 }},
		{"zero supply", func(p *Params) { p.TotalSupply = 0 }},
		{"overflow", func(p *Params) { p.TotalSupply = math.MaxUint64 / 10; p.Decimals = 9 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			params := newTestParams()
			tc.mutate(params)

			err := params.Validate()
			assert.True(t, errors.Is(err, ErrInvalidInput), "%v", err)
		})
	}

	var nilParams *Params
	assert.True(t, errors.Is(nilParams.Validate(), ErrInvalidInput))
}

func TestParams_Boundaries(t *testing.T) {
	params := newTestParams()
	params.Name = strings.Repeat("n", 32)
	params.Symbol = strings.Repeat("S", 10)
	params.Decimals = 9
	params.TotalSupply = math.MaxUint64 / 1_000_000_000
	assert.NoError(t, params.Validate())
}

func TestParams_OnLedgerNameAndSymbol(t *testing.T) {
	params := newTestParams()
	assert.Equal(t, params.Name, params.OnLedgerName())
	assert.Equal(t, params.Symbol, params.OnLedgerSymbol())

	params.Name = strings.Repeat("n", 40)
	params.Symbol = strings.Repeat("S", 12)
	require.NoError(t, params.Validate())
	assert.Equal(t, strings.Repeat("n", 32), params.OnLedgerName())
	assert.Equal(t, strings.Repeat("S", 10), params.OnLedgerSymbol())

	// Multi-byte characters are never split.
	params.Name = strings.Repeat("é", 17)
	params.Symbol = "🚀🚀🚀"
	assert.Equal(t, strings.Repeat("é", 16), params.OnLedgerName())
	assert.Equal(t, "🚀🚀", params.OnLedgerSymbol())
}

func TestParams_RawSupply(t *testing.T) {
	params := newTestParams()
	raw, err := params.RawSupply()
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000_000_000, raw)

	params.Decimals = 0
	raw, err = params.RawSupply()
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000, raw)
}

func TestComputeSplit(t *testing.T) {
	for _, tc := range []struct {
		name     string
		total    uint64
		expected Allocation
	}{
		{
			name:     "one billion with six decimals",
			total:    1_000_000_000_000_000,
			expected: Allocation{Creator: 200_000_000_000_000, Liquidity: 700_000_000_000_000, Community: 100_000_000_000_000},
		},
		{
			name:     "remainder to creator",
			total:    1_000_000_001,
			expected: Allocation{Creator: 200_000_001, Liquidity: 700_000_000, Community: 100_000_000},
		},
		{
			name:     "single unit",
			total:    1,
			expected: Allocation{Creator: 1},
		},
		{
			name:     "max supply",
			total:    math.MaxUint64,
			expected: Allocation{Creator: 3689348814741910324, Liquidity: 12912720851596686130, Community: 1844674407370955161},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual := ComputeSplit(tc.total)
			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, tc.total, actual.Total())
		})
	}
}

func TestSplitPolicy_Validate(t *testing.T) {
	assert.NoError(t, RemainderToCreator.Validate())
	assert.Error(t, SplitPolicy{CreatorPercent: 50, LiquidityPercent: 60}.Validate())
}

func TestState_Transitions(t *testing.T) {
	built := &Built{}

	assert.True(t, errors.Is(built.Transition(StateSubmitted), ErrInvalidStateTransition))
	require.NoError(t, built.Transition(StateBuilt))
	require.NoError(t, built.Transition(StateSignatureVerified))
	require.NoError(t, built.Transition(StateSubmitted))
	require.NoError(t, built.Transition(StateUnknown))
	assert.False(t, built.State.IsTerminal())
	require.NoError(t, built.Transition(StateConfirmed))
	assert.True(t, built.State.IsTerminal())

	for _, next := range []State{StateNew, StateBuilt, StateSubmitted, StateFailed, StateUnknown} {
		assert.True(t, errors.Is(built.Transition(next), ErrInvalidStateTransition))
	}
	assert.Equal(t, StateConfirmed, built.State)
	assert.Equal(t, "confirmed", built.State.String())
}
