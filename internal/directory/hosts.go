// Package directory discovers target hosts and resolves account identities.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/juju/collections/set"
	"golang.org/x/text/unicode/norm"
)

var ErrEmptyHostList = errors.New("host list is empty")

// Source yields the hosts a run targets.
type Source interface {
	Hosts(ctx context.Context) ([]string, error)
}

// DiscoveryError reports that a Source could not produce a host list.
type DiscoveryError struct {
	Source string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("host discovery via %s failed: %v", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NormalizeHost canonicalizes one host name: NFC, trimmed, upper case.
func NormalizeHost(h string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(h)))
}

// NormalizeHosts canonicalizes, deduplicates and sorts hosts. Blank entries
// are dropped.
func NormalizeHosts(hosts []string) []string {
	seen := set.NewStrings()
	for _, h := range hosts {
		if n := NormalizeHost(h); n != "" {
			seen.Add(n)
		}
	}
	return seen.SortedValues()
}

// SplitHostList accepts either a comma delimited string or a list of names.
// List items may themselves contain commas.
func SplitHostList(v any) ([]string, error) {
	var items []string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		items = []string{t}
	case []string:
		items = t
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("host list entry %v is not a string", e)
			}
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("unsupported host list type %T", v)
	}

	var out []string
	for _, item := range items {
		out = append(out, strings.Split(item, ",")...)
	}
	return NormalizeHosts(out), nil
}

// StaticSource serves a fixed host list.
type StaticSource []string

func (s StaticSource) Hosts(_ context.Context) ([]string, error) {
	hosts := NormalizeHosts(s)
	if len(hosts) == 0 {
		return nil, &DiscoveryError{Source: "static list", Err: ErrEmptyHostList}
	}
	return hosts, nil
}

// Normalized wraps a Source so its output is normalized.
func Normalized(src Source) Source {
	return normalized{src}
}

type normalized struct {
	Source
}

func (n normalized) Hosts(ctx context.Context) ([]string, error) {
	hosts, err := n.Source.Hosts(ctx)
	if err != nil {
		return nil, err
	}
	return NormalizeHosts(hosts), nil
}
