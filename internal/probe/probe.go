package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"

	"github.com/iaserrat/connwatch/internal/logging"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultDNSTimeout     = 5 * time.Second
)

type Config struct {
	ConnectTimeout time.Duration
	DNSTimeout     time.Duration
	Resolvers      []string // explicit DNS servers (host:port); empty means system resolver
	Progress       io.Writer
	Log            *logrus.Logger
	Events         *logging.Logger
}

// Prober measures DNS resolution and TCP connect time for one endpoint
// at a time. It is not safe for concurrent use; the sampler drives it
// strictly sequentially.
type Prober struct {
	connectTimeout time.Duration
	dnsTimeout     time.Duration
	resolvers      []string
	client         *dns.Client
	resolver       *net.Resolver
	progress       io.Writer
	log            *logrus.Logger
	events         *logging.Logger
	resIdx         int
}

func New(cfg Config) *Prober {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = DefaultDNSTimeout
	}
	if cfg.Progress == nil {
		cfg.Progress = io.Discard
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	return &Prober{
		connectTimeout: cfg.ConnectTimeout,
		dnsTimeout:     cfg.DNSTimeout,
		resolvers:      cfg.Resolvers,
		client:         &dns.Client{Timeout: cfg.DNSTimeout},
		resolver:       &net.Resolver{},
		progress:       cfg.Progress,
		log:            cfg.Log,
		events:         cfg.Events,
	}
}

// Probe resolves the endpoint's hostname, then dials the resolved IP.
// Both phases are timed independently; the dial timer starts only after
// resolution completes. Failures never escape as errors, they come back
// as failed phases in the Outcome.
func (p *Prober) Probe(ctx context.Context, ep Endpoint) Outcome {
	fmt.Fprint(p.progress, ".")

	start := time.Now()
	ip, err := p.resolve(ctx, ep.Hostname)
	dnsElapsed := time.Since(start)

	if err != nil {
		p.failure(ep, "dns", err)
		// no address to dial; the connect phase is failed by implication
		return Outcome{}
	}

	out := Outcome{DNS: PhaseResult{OK: true, Elapsed: dnsElapsed}}

	addr := net.JoinHostPort(ip.String(), strconv.Itoa(int(ep.Port)))
	dialer := &net.Dialer{Timeout: p.connectTimeout}

	start = time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	connElapsed := time.Since(start)

	if err != nil {
		p.failure(ep, "connect", err)
		return out
	}
	conn.Close()

	out.Connect = PhaseResult{OK: true, Elapsed: connElapsed}
	return out
}

func (p *Prober) resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	if len(p.resolvers) > 0 {
		return p.exchange(ctx, host)
	}

	rctx, cancel := context.WithTimeout(ctx, p.dnsTimeout)
	defer cancel()

	addrs, err := p.resolver.LookupIPAddr(rctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	return addrs[0].IP, nil
}

// exchange queries one of the configured resolvers directly, rotating
// across them probe by probe.
func (p *Prober) exchange(ctx context.Context, host string) (net.IP, error) {
	server := p.resolvers[p.resIdx%len(p.resolvers)]
	p.resIdx++

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := p.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("query %s via %s: %w", host, server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s via %s: rcode %s", host, server, dns.RcodeToString[resp.Rcode])
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A, nil
		}
	}
	return nil, fmt.Errorf("no A records for %s", host)
}

func (p *Prober) failure(ep Endpoint, phase string, err error) {
	p.log.WithFields(logrus.Fields{
		"target": ep.Addr(),
		"phase":  phase,
	}).Warnf("probe failed: %v", err)

	if p.events != nil {
		_ = p.events.Emit(&logging.ProbeFailure{
			BaseEvent: logging.BaseEvent{Type: "probe_failure", Target: ep.Addr()},
			Phase:     phase,
			Err:       err.Error(),
		})
	}
}
