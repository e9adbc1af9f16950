package geoip

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

// ErrNoCountry is returned when a lookup succeeded but carried no country.
var ErrNoCountry = errors.New("no country in response")

// Locator returns the ISO country code of an address.
type Locator interface {
	Country(ctx context.Context, ip netip.Addr) (string, error)
}

// LookupError reports a failed request to a GeoIP backend. Lookup errors are
// worth retrying; ErrNoCountry is not.
type LookupError struct {
	Backend    Backend
	IP         netip.Addr
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("geoip %s lookup %s: unexpected status %d", e.Backend, e.IP, e.StatusCode)
	}
	return fmt.Sprintf("geoip %s lookup %s: %v", e.Backend, e.IP, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
