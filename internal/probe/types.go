package probe

import (
	"net"
	"strconv"
	"time"
)

// Endpoint identifies one monitored hostname:port pair.
type Endpoint struct {
	Hostname string
	Port     uint16
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Hostname, strconv.Itoa(int(e.Port)))
}

// PhaseResult is the timing of one probe phase (DNS or connect).
// Elapsed is meaningless when OK is false.
type PhaseResult struct {
	OK      bool
	Elapsed time.Duration
}

// Outcome is one full measurement for one endpoint. A DNS failure
// implies Connect.OK == false with no dial attempted.
type Outcome struct {
	DNS     PhaseResult
	Connect PhaseResult
}

type Sample struct {
	Endpoint Endpoint
	Time     time.Time
	Outcome  Outcome
}
