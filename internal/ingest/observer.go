package ingest

import "codeberg.org/mutker/thermochart/internal/sample"

// DropReason says why a live message did not reach the buffer
type DropReason string

const (
	DropMalformed DropReason = "malformed"
	DropStale     DropReason = "stale"
)

// Observer is told about everything the client does to the buffer and the
// stream. Calls happen on the goroutine that calls Client.Handle.
type Observer interface {
	SampleAppended(s sample.Sample)
	SampleDropped(reason DropReason)
	BootstrapCompleted(loaded, dropped int, err error)
	StateChanged(state State)
	ReconnectAttempted()
}

// NopObserver ignores everything
type NopObserver struct{}

func (NopObserver) SampleAppended(sample.Sample)       {}
func (NopObserver) SampleDropped(DropReason)           {}
func (NopObserver) BootstrapCompleted(int, int, error) {}
func (NopObserver) StateChanged(State)                 {}
func (NopObserver) ReconnectAttempted()                {}
