// Package distribution pays out a mint's community vault to registered
// creators.
package distribution

// DefaultBatchSize is the maximum number of recipients paid per transaction.
const DefaultBatchSize = 10

// Payout is the amount owed to a single recipient wallet.
type Payout struct {
	Recipient string
	Amount    uint64
}

// Calculate splits pooled evenly across the unique recipients other than
// exclude. The first recipient receives the remainder, so the payouts always
// sum to pooled. Nil is returned when there is nothing to pay.
func Calculate(pooled uint64, recipients []string, exclude string) []Payout {
	if pooled == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(recipients))
	var eligible []string
	for _, recipient := range recipients {
		if len(recipient) == 0 || recipient == exclude {
			continue
		}
		if _, ok := seen[recipient]; ok {
			continue
		}
		seen[recipient] = struct{}{}
		eligible = append(eligible, recipient)
	}
	if len(eligible) == 0 {
		return nil
	}

	n := uint64(len(eligible))
	share := pooled / n
	remainder := pooled % n

	payouts := make([]Payout, len(eligible))
	for i, recipient := range eligible {
		payouts[i] = Payout{Recipient: recipient, Amount: share}
	}
	payouts[0].Amount += remainder

	return payouts
}

// Batch groups payouts into consecutive batches of at most size entries.
// A non-positive size uses DefaultBatchSize.
func Batch(payouts []Payout, size int) [][]Payout {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var batches [][]Payout
	for start := 0; start < len(payouts); start += size {
		end := start + size
		if end > len(payouts) {
			end = len(payouts)
		}
		batches = append(batches, payouts[start:end])
	}
	return batches
}

// Total sums the amounts of payouts.
func Total(payouts []Payout) uint64 {
	var total uint64
	for _, payout := range payouts {
		total += payout.Amount
	}
	return total
}
