package auction

import "time"

const (
	DefaultExtensionWindow = 2 * time.Minute
	DefaultExtensionAmount = 2 * time.Minute
)

// ComputeExtension returns the end time after a bid placed at bidAt. A bid
// landing within window of currentEnd pushes the end by amount; there is no
// cap on how many times that can happen.
func ComputeExtension(currentEnd, bidAt time.Time, window, amount time.Duration) time.Time {
	if bidAt.After(currentEnd) {
		return currentEnd
	}
	if currentEnd.Sub(bidAt) <= window {
		return currentEnd.Add(amount)
	}
	return currentEnd
}
