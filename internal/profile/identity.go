package profile

import (
	"context"
	"strings"
)

// Untranslatable is returned by resolvers that could not map a SID to a name.
const Untranslatable = "<untranslatable>"

// Resolver maps a security identifier to a display label. Implementations
// swallow lookup failures and return Untranslatable instead.
type Resolver interface {
	Resolve(ctx context.Context, host, sid string) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, host, sid string) string

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, host, sid string) string {
	return f(ctx, host, sid)
}

// ChainResolver tries each resolver in order and returns the first translation.
type ChainResolver []Resolver

// Resolve implements Resolver.
func (c ChainResolver) Resolve(ctx context.Context, host, sid string) string {
	for _, r := range c {
		if r == nil {
			continue
		}
		if label := r.Resolve(ctx, host, sid); label != "" && label != Untranslatable {
			return label
		}
	}
	return Untranslatable
}

// StaticResolver answers from a fixed SID to label map, typically the
// translations a host reported alongside its inventory.
type StaticResolver map[string]string

// Resolve implements Resolver.
func (s StaticResolver) Resolve(_ context.Context, _ string, sid string) string {
	if label, ok := s[sid]; ok && strings.TrimSpace(label) != "" {
		return label
	}
	return Untranslatable
}

// AccountLabel picks the display label for a record: the resolved name, else
// the leaf directory of localPath, else the raw SID. The result is never empty.
func AccountLabel(resolved, localPath, sid string) string {
	if resolved = strings.TrimSpace(resolved); resolved != "" && resolved != Untranslatable {
		return resolved
	}
	if leaf := pathLeaf(localPath); leaf != "" {
		return leaf
	}
	if sid != "" {
		return sid
	}
	return Untranslatable
}

func pathLeaf(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, "/", `\`), `\`)
	if p == "" {
		return ""
	}
	if i := strings.LastIndex(p, `\`); i >= 0 {
		p = p[i+1:]
	}
	if strings.HasSuffix(p, ":") {
		return ""
	}
	return p
}

// UnderRoot reports whether localPath lies strictly below root. Comparison is
// case-insensitive and treats / and \ alike.
func UnderRoot(localPath, root string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimRight(strings.ReplaceAll(strings.TrimSpace(s), "/", `\`), `\`))
	}
	p, r := norm(localPath), norm(root)
	if p == "" || r == "" {
		return false
	}
	return strings.HasPrefix(p, r+`\`) && len(p) > len(r)+1
}
