package ingest

// State is the lifecycle of the live subscription
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	ClosedByError
	ClosedByServer
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ClosedByError:
		return "closed-by-error"
	case ClosedByServer:
		return "closed-by-server"
	default:
		return "unknown"
	}
}

// Closed reports whether the stream has ended, for whatever reason
func (s State) Closed() bool {
	return s == ClosedByError || s == ClosedByServer
}
