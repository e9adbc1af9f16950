// Package resolve turns DoH endpoint hosts into IP addresses.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const defaultTimeout = 5 * time.Second

// ErrNoAddress is returned when a name has no A or AAAA record.
var ErrNoAddress = errors.New("no address found")

// Resolver looks up host addresses either through configured upstream DNS
// servers or, when none are configured, through the system resolver.
type Resolver struct {
	upstreams []string
	client    *dns.Client
	system    *net.Resolver
	timeout   time.Duration
	log       *slog.Logger
}

// New creates a Resolver. Upstreams are host:port addresses queried in order.
func New(upstreams []string, timeout time.Duration, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		upstreams: upstreams,
		client:    &dns.Client{Timeout: timeout},
		system:    net.DefaultResolver,
		timeout:   timeout,
		log:       log,
	}
}

// Resolve returns the first address found for host. IP literals are returned as is.
func (r *Resolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	if len(r.upstreams) == 0 {
		return r.resolveSystem(ctx, host)
	}

	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, err := r.query(ctx, host, qtype)
		if err == nil {
			return addr, nil
		}
		lastErr = err
	}
	return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, lastErr)
}

func (r *Resolver) resolveSystem(ctx context.Context, host string) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.system.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, addr := range addrs {
		// IPv4 first, matching the upstream path.
		if addr.Unmap().Is4() {
			return addr.Unmap(), nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0], nil
	}
	return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, ErrNoAddress)
}

func (r *Resolver) query(ctx context.Context, host string, qtype uint16) (netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(strings.ToLower(host)), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.upstreams {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			r.log.Debug("upstream query failed, trying next server", "server", server, "name", host, "error", err)
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeNameError {
			return netip.Addr{}, ErrNoAddress
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("upstream %s answered %s", server, dns.RcodeToString[resp.Rcode])
			continue
		}
		if addr, ok := firstAddress(resp, qtype); ok {
			return addr, nil
		}
		return netip.Addr{}, ErrNoAddress
	}
	if lastErr == nil {
		lastErr = ErrNoAddress
	}
	return netip.Addr{}, lastErr
}

func firstAddress(resp *dns.Msg, qtype uint16) (netip.Addr, bool) {
	for _, rr := range resp.Answer {
		var ip net.IP
		switch rec := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				ip = rec.A
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				ip = rec.AAAA
			}
		}
		if ip == nil {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
