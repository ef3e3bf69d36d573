package discovery

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Entry is one advertised service instance as seen by a Browser.
type Entry struct {
	Instance string
	HostName string
	Port     int
	Text     []string
	AddrIPv4 []net.IP
	AddrIPv6 []net.IP
}

// HasAddress reports whether the entry can be turned into a result without
// a follow-up lookup.
func (e Entry) HasAddress() bool {
	return len(e.AddrIPv4) > 0 || len(e.AddrIPv6) > 0
}

// Browser browses one service type on the local network.
type Browser interface {
	// Browse reports entries to found until ctx is done or the browse ends.
	Browse(ctx context.Context, service, domain string, found func(Entry)) error
	// Resolve looks up the address of one instance.
	Resolve(ctx context.Context, instance, service, domain string) (Entry, error)
}

// ErrNotResolved is returned when a lookup yields nothing before its deadline.
var ErrNotResolved = errors.New("discovery: instance not resolved")

// ZeroconfBrowser browses multicast DNS with grandcat/zeroconf.
type ZeroconfBrowser struct{}

func (ZeroconfBrowser) Browse(ctx context.Context, service, domain string, found func(Entry)) error {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return err
	}
	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-entries:
			if !ok {
				return nil
			}
			if e != nil {
				found(fromZeroconf(e))
			}
		}
	}
}

func (ZeroconfBrowser) Resolve(ctx context.Context, instance, service, domain string) (Entry, error) {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return Entry{}, err
	}
	entries := make(chan *zeroconf.ServiceEntry, 4)
	if err := resolver.Lookup(ctx, instance, service, domain, entries); err != nil {
		return Entry{}, err
	}
	for {
		select {
		case <-ctx.Done():
			return Entry{}, ErrNotResolved
		case e, ok := <-entries:
			if !ok {
				return Entry{}, ErrNotResolved
			}
			if e != nil && (len(e.AddrIPv4) > 0 || len(e.AddrIPv6) > 0) {
				return fromZeroconf(e), nil
			}
		}
	}
}

func fromZeroconf(e *zeroconf.ServiceEntry) Entry {
	return Entry{
		Instance: unescapeInstance(e.Instance),
		HostName: e.HostName,
		Port:     e.Port,
		Text:     append([]string(nil), e.Text...),
		AddrIPv4: append([]net.IP(nil), e.AddrIPv4...),
		AddrIPv6: append([]net.IP(nil), e.AddrIPv6...),
	}
}

// unescapeInstance undoes DNS-SD label escaping ("Front\ Door").
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
