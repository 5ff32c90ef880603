package target

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// MaxHosts is the largest number of addresses a single argument may expand to.
const MaxHosts = 65536

var (
	// ErrInvalidTarget is returned for an argument that cannot be parsed.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrRangeTooLarge is returned when an argument expands beyond MaxHosts.
	ErrRangeTooLarge = errors.New("target range too large")
)

// ExpandAll expands every argument and removes duplicates, keeping the first
// occurrence order.
func ExpandAll(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var hosts []string
	for _, arg := range args {
		expanded, err := Expand(arg)
		if err != nil {
			return nil, err
		}
		for _, h := range expanded {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// Expand expands one argument into hosts.
func Expand(arg string) ([]string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	if strings.Contains(arg, ",") {
		var hosts []string
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			expanded, err := Expand(part)
			if err != nil {
				return nil, err
			}
			hosts = append(hosts, expanded...)
		}
		return hosts, nil
	}

	if strings.Contains(arg, "/") {
		return expandCIDR(arg)
	}

	if start, end, ok := strings.Cut(arg, "-"); ok {
		if first, err := netip.ParseAddr(start); err == nil && first.Is4() {
			return expandRange(first, end)
		}
	}

	return []string{arg}, nil
}

// expandCIDR lists the host addresses of an IPv4 prefix.
func expandCIDR(arg string) ([]string, error) {
	prefix, err := netip.ParsePrefix(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTarget, arg, err)
	}
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("%w: %s: only IPv4 prefixes can be expanded", ErrInvalidTarget, arg)
	}
	prefix = prefix.Masked()

	hostBits := 32 - prefix.Bits()
	if hostBits > 16 {
		return nil, fmt.Errorf("%w: %s", ErrRangeTooLarge, arg)
	}

	total := 1 << hostBits
	addr := prefix.Addr()
	hosts := make([]string, 0, total)
	for range total {
		hosts = append(hosts, addr.String())
		addr = addr.Next()
	}

	// /31 and /32 have no network or broadcast address.
	if hostBits >= 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

// expandRange lists addresses from first to the end bound, which is either a
// full IPv4 address or the last octet.
func expandRange(first netip.Addr, end string) ([]string, error) {
	var last netip.Addr
	if strings.Contains(end, ".") {
		addr, err := netip.ParseAddr(end)
		if err != nil || !addr.Is4() {
			return nil, fmt.Errorf("%w: range end %q", ErrInvalidTarget, end)
		}
		last = addr
	} else {
		octet, err := strconv.Atoi(end)
		if err != nil || octet < 0 || octet > 255 {
			return nil, fmt.Errorf("%w: range end %q", ErrInvalidTarget, end)
		}
		b := first.As4()
		b[3] = byte(octet)
		last = netip.AddrFrom4(b)
	}

	if last.Less(first) {
		return nil, fmt.Errorf("%w: %s-%s is reversed", ErrInvalidTarget, first, end)
	}

	var hosts []string
	for addr := first; ; addr = addr.Next() {
		if len(hosts) == MaxHosts {
			return nil, fmt.Errorf("%w: %s-%s", ErrRangeTooLarge, first, end)
		}
		hosts = append(hosts, addr.String())
		if addr == last {
			break
		}
	}
	return hosts, nil
}
