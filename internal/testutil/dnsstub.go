// Package testutil provides DNS and GeoIP stubs for deterministic tests.
package testutil

import (
	"net"
	"net/netip"
	"strings"
	"testing"

	"github.com/miekg/dns"
)

// DNSStub is a UDP DNS server on a random loopback port.
type DNSStub struct {
	Addr   string
	server *dns.Server
}

// StartDNSStub serves handler until the test ends.
func StartDNSStub(t *testing.T, handler dns.Handler) *DNSStub {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	started := make(chan struct{})
	stub := &DNSStub{
		Addr: conn.LocalAddr().String(),
		server: &dns.Server{
			PacketConn:        conn,
			Handler:           handler,
			NotifyStartedFunc: func() { close(started) },
		},
	}
	errCh := make(chan error, 1)
	go func() { errCh <- stub.server.ActivateAndServe() }()

	select {
	case <-started:
	case err := <-errCh:
		t.Fatalf("start dns stub: %v", err)
	}
	t.Cleanup(func() { _ = stub.server.Shutdown() })
	return stub
}

// HostsHandler answers A or AAAA questions from a host to IP table. A known
// host asked for the other family gets an empty answer; unknown hosts get
// NXDOMAIN.
func HostsHandler(hosts map[string]string) dns.Handler {
	records := make(map[string]netip.Addr, len(hosts))
	for name, ip := range hosts {
		if addr, err := netip.ParseAddr(ip); err == nil {
			records[dns.Fqdn(strings.ToLower(name))] = addr
		}
	}

	return dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		reply := new(dns.Msg)
		if len(r.Question) == 0 {
			reply.SetRcode(r, dns.RcodeFormatError)
			_ = w.WriteMsg(reply)
			return
		}
		reply.SetReply(r)
		reply.RecursionAvailable = true

		q := r.Question[0]
		addr, ok := records[strings.ToLower(q.Name)]
		if !ok {
			reply.Rcode = dns.RcodeNameError
			_ = w.WriteMsg(reply)
			return
		}

		hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}
		switch {
		case q.Qtype == dns.TypeA && addr.Is4():
			reply.Answer = append(reply.Answer, &dns.A{Hdr: hdr, A: addr.AsSlice()})
		case q.Qtype == dns.TypeAAAA && addr.Is6():
			reply.Answer = append(reply.Answer, &dns.AAAA{Hdr: hdr, AAAA: addr.AsSlice()})
		}
		_ = w.WriteMsg(reply)
	})
}
