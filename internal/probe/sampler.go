package probe

import (
	"context"
	"time"
)

// RunSampler probes every endpoint in registry order, pauses for
// interval, and repeats until ctx is cancelled. Probes within a pass run
// strictly sequentially; a hung target delays the rest of its pass by at
// most the connect timeout. Samples go to out, which is closed on exit
// so the consumer can drain.
func RunSampler(ctx context.Context, endpoints []Endpoint, p *Prober, interval time.Duration, out chan<- Sample) {
	defer close(out)

	for {
		for _, ep := range endpoints {
			if ctx.Err() != nil {
				return
			}

			o := p.Probe(ctx, ep)
			s := Sample{Endpoint: ep, Time: time.Now().UTC(), Outcome: o}

			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
