package currency

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupported indicates a currency code outside the configured set.
var ErrUnsupported = errors.New("unsupported currency")

// Currency is an ISO-4217 style currency code.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
	EUR Currency = "EUR"
	BRL Currency = "BRL"
)

// Default is the currency set the service ships with.
var Default = NewSet(ARS, USD, EUR, BRL)

// Set is an immutable collection of supported currencies.
type Set struct {
	members map[Currency]struct{}
}

// NewSet builds a Set from the provided codes.
func NewSet(codes ...Currency) Set {
	members := make(map[Currency]struct{}, len(codes))
	for _, c := range codes {
		members[Currency(strings.ToUpper(string(c)))] = struct{}{}
	}
	return Set{members: members}
}

// ParseSet reads a comma separated list such as "ARS,USD,EUR".
func ParseSet(raw string) (Set, error) {
	var codes []Currency
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if len(code) != 3 {
			return Set{}, fmt.Errorf("currency code %q must be 3 letters", code)
		}
		codes = append(codes, Currency(code))
	}
	if len(codes) == 0 {
		return Set{}, fmt.Errorf("currency set is empty")
	}
	return NewSet(codes...), nil
}

// Contains reports whether c belongs to the set.
func (s Set) Contains(c Currency) bool {
	_, ok := s.members[c]
	return ok
}

// Parse normalizes raw and checks it against the set.
func (s Set) Parse(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Contains(c) {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, raw)
	}
	return c, nil
}

// List returns the members sorted alphabetically.
func (s Set) List() []Currency {
	out := make([]Currency, 0, len(s.members))
	for c := range s.members {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Currency) String() string { return string(c) }
