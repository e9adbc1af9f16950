package geoip

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindLocator reads countries from a local GeoLite2/GeoIP2 Country database.
type MaxMindLocator struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the mmdb file at path.
func OpenMaxMind(path string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maxmind database: %w", err)
	}
	return &MaxMindLocator{reader: reader}, nil
}

// Country implements Locator.
func (l *MaxMindLocator) Country(_ context.Context, ip netip.Addr) (string, error) {
	record, err := l.reader.Country(net.IP(ip.AsSlice()))
	if err != nil {
		return "", &LookupError{Backend: MaxMind, IP: ip, Err: err}
	}
	if record.Country.IsoCode == "" {
		return "", ErrNoCountry
	}
	return record.Country.IsoCode, nil
}

// Close releases the database.
func (l *MaxMindLocator) Close() error {
	return l.reader.Close()
}
