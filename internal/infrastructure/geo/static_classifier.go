// Package geo implements the origin-to-country classifier used by the
// data-residency check.
package geo

import (
	"context"
	"fmt"
	"net"
	"sort"
)

// StaticClassifier resolves origin IPs against a configured CIDR table.
// Loopback and private origins classify as "LOCAL". Deployments front the
// service with an edge that sets the true client IP; the table maps the
// edge's announced ranges to countries.
type StaticClassifier struct {
	ranges []countryRange
}

type countryRange struct {
	network *net.IPNet
	country string
}

// NewStaticClassifier builds a classifier from a map of CIDR to ISO country
// code.
func NewStaticClassifier(cidrToCountry map[string]string) (*StaticClassifier, error) {
	ranges := make([]countryRange, 0, len(cidrToCountry))

	// Deterministic order so overlapping ranges resolve stably.
	cidrs := make([]string, 0, len(cidrToCountry))
	for cidr := range cidrToCountry {
		cidrs = append(cidrs, cidr)
	}
	sort.Strings(cidrs)

	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		ranges = append(ranges, countryRange{network: network, country: cidrToCountry[cidr]})
	}
	return &StaticClassifier{ranges: ranges}, nil
}

// Classify returns the country code for an origin IP, "LOCAL" for loopback
// and private origins, and "UNKNOWN" for anything outside the table.
func (c *StaticClassifier) Classify(ctx context.Context, originIP string) (string, error) {
	ip := net.ParseIP(originIP)
	if ip == nil {
		return "", fmt.Errorf("unparseable origin IP %q", originIP)
	}

	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return "LOCAL", nil
	}

	for _, r := range c.ranges {
		if r.network.Contains(ip) {
			return r.country, nil
		}
	}
	return "UNKNOWN", nil
}
