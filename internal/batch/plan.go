package batch

// Plan partitions a total request volume into fixed-size concurrent
// batches. Concurrency may exceed the remaining volume; the final batch
// is simply smaller.
type Plan struct {
	Total       int
	Concurrency int
}

// NumBatches returns ceil(Total / Concurrency). A zero-volume plan has
// zero batches.
func (p Plan) NumBatches() int {
	if p.Total <= 0 || p.Concurrency <= 0 {
		return 0
	}
	return (p.Total + p.Concurrency - 1) / p.Concurrency
}

// SizeOf returns the number of requests in batch index i (0-based):
// min(Concurrency, Total - i*Concurrency). Out-of-range indexes yield 0.
func (p Plan) SizeOf(i int) int {
	if i < 0 || i >= p.NumBatches() {
		return 0
	}
	remaining := p.Total - i*p.Concurrency
	if remaining > p.Concurrency {
		return p.Concurrency
	}
	return remaining
}

// Sizes returns the size of every batch in dispatch order.
func (p Plan) Sizes() []int {
	n := p.NumBatches()
	sizes := make([]int, n)
	for i := 0; i < n; i++ {
		sizes[i] = p.SizeOf(i)
	}
	return sizes
}
