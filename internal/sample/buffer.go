package sample

// Writer is the only access the ingestion side gets to a Buffer
type Writer interface {
	Append(s Sample)
	ReplaceAll(samples []Sample)
}

// Buffer is the ordered store of samples, in arrival order. It is owned by a
// single goroutine: callers must not share it across goroutines without
// their own synchronization.
type Buffer struct {
	samples []Sample
}

// NewBuffer returns an empty Buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds s after every existing sample
func (b *Buffer) Append(s Sample) {
	b.samples = append(b.samples, s)
}

// ReplaceAll swaps the whole content for a copy of samples
func (b *Buffer) ReplaceAll(samples []Sample) {
	b.samples = append(make([]Sample, 0, len(samples)), samples...)
}

// Snapshot returns a copy of the current content, oldest first
func (b *Buffer) Snapshot() []Sample {
	return append([]Sample(nil), b.samples...)
}

// Len returns the number of buffered samples
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Latest returns the most recently appended sample
func (b *Buffer) Latest() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Prune drops the leading samples whose time is before cutoff and returns how
// many were removed. Samples are in non-decreasing time order, so only a
// prefix is ever dropped.
func (b *Buffer) Prune(cutoff int64) int {
	n := 0
	for n < len(b.samples) && b.samples[n].Time < cutoff {
		n++
	}
	if n == 0 {
		return 0
	}

	b.samples = append(make([]Sample, 0, len(b.samples)-n), b.samples[n:]...)
	return n
}
