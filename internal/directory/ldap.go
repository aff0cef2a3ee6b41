package directory

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/aatumaykin/profsweep/internal/executil"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/profile"
)

// Enabled computer accounts: userAccountControl without ACCOUNTDISABLE.
const enabledComputersFilter = "(&(objectCategory=computer)(!(userAccountControl:1.2.840.113556.1.4.803:=2)))"

type LDAPConfig struct {
	Binary   string // default "ldapsearch"
	Host     string // "dc01.corp.example:389"
	BaseDN   string
	BindDN   string
	Password string
	UseLDAPS bool
	// ServerMarker excludes computers whose operatingSystem contains it.
	ServerMarker string
	// Domain prefixes resolved account names ("CORP" gives "CORP\alice").
	Domain string
}

// Entry is one LDIF record.
type Entry struct {
	DN    string
	Attrs map[string][]string
}

// First returns the first value of attr, matched case-insensitively.
func (e Entry) First(attr string) string {
	for k, vs := range e.Attrs {
		if strings.EqualFold(k, attr) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

type runFunc func(ctx context.Context, bin string, args ...string) executil.Result

func execRun(ctx context.Context, bin string, args ...string) executil.Result {
	return executil.Run(ctx, nil, bin, args...)
}

// LDAP queries a directory through the ldapsearch binary.
type LDAP struct {
	cfg LDAPConfig
	log *logger.Logger
	run runFunc
}

func NewLDAP(cfg LDAPConfig, log *logger.Logger) *LDAP {
	if cfg.Binary == "" {
		cfg.Binary = "ldapsearch"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LDAP{cfg: cfg, log: log, run: execRun}
}

// Search runs one query and parses its LDIF output.
func (l *LDAP) Search(ctx context.Context, filter string, attrs ...string) ([]Entry, error) {
	if l.cfg.Host == "" {
		return nil, errors.New("ldap host is required")
	}
	if l.cfg.BaseDN == "" {
		return nil, errors.New("ldap base DN is required")
	}

	scheme := "ldap"
	if l.cfg.UseLDAPS {
		scheme = "ldaps"
	}
	args := []string{"-x", "-LLL", "-o", "ldif-wrap=no", "-H", fmt.Sprintf("%s://%s", scheme, l.cfg.Host), "-b", l.cfg.BaseDN}
	if l.cfg.BindDN != "" {
		args = append(args, "-D", l.cfg.BindDN)
		if l.cfg.Password != "" {
			// -y keeps the password out of the process list.
			pwFile, err := writePasswordFile(l.cfg.Password)
			if err != nil {
				return nil, err
			}
			defer os.Remove(pwFile)
			args = append(args, "-y", pwFile)
		}
	}
	args = append(args, filter)
	args = append(args, attrs...)

	res := l.run(ctx, l.cfg.Binary, args...)
	if res.Err != nil {
		return nil, fmt.Errorf("ldapsearch error: %w: %s", res.Err, strings.TrimSpace(res.ErrOutput()))
	}
	return ParseLDIF(res.Output()), nil
}

// writePasswordFile stores password in a 0600 temp file for ldapsearch -y,
// which reads the file verbatim, so no trailing newline is written.
func writePasswordFile(password string) (string, error) {
	f, err := os.CreateTemp("", "profsweep-ldap-*")
	if err != nil {
		return "", fmt.Errorf("failed to create ldap password file: %w", err)
	}
	if err := f.Chmod(0o600); err != nil && runtime.GOOS != "windows" {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to restrict ldap password file: %w", err)
	}
	_, werr := f.WriteString(password)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write ldap password file: %w", werr)
	}
	return f.Name(), nil
}

// Hosts lists enabled workstation-class computers.
func (l *LDAP) Hosts(ctx context.Context) ([]string, error) {
	entries, err := l.Search(ctx, enabledComputersFilter, "name", "dNSHostName", "operatingSystem")
	if err != nil {
		return nil, &DiscoveryError{Source: "ldap", Err: err}
	}

	var hosts []string
	skipped := 0
	for _, e := range entries {
		if l.cfg.ServerMarker != "" &&
			strings.Contains(strings.ToLower(e.First("operatingSystem")), strings.ToLower(l.cfg.ServerMarker)) {
			skipped++
			continue
		}
		name := e.First("name")
		if name == "" {
			name, _, _ = strings.Cut(e.First("dNSHostName"), ".")
		}
		if name != "" {
			hosts = append(hosts, name)
		}
	}

	hosts = NormalizeHosts(hosts)
	l.log.Debug("ldap discovery finished",
		logger.Field{Key: "entries", Value: len(entries)},
		logger.Field{Key: "servers_excluded", Value: skipped},
		logger.Field{Key: "hosts", Value: len(hosts)})

	if len(hosts) == 0 {
		return nil, &DiscoveryError{Source: "ldap", Err: ErrEmptyHostList}
	}
	return hosts, nil
}

// SIDResolver translates SIDs through objectSid lookups. Answers, including
// misses, are cached for the life of the resolver.
type SIDResolver struct {
	ldap  *LDAP
	mu    sync.Mutex
	cache map[string]string
}

func NewSIDResolver(l *LDAP) *SIDResolver {
	return &SIDResolver{ldap: l, cache: make(map[string]string)}
}

func (r *SIDResolver) Resolve(ctx context.Context, _ string, sid string) string {
	r.mu.Lock()
	if label, ok := r.cache[sid]; ok {
		r.mu.Unlock()
		return label
	}
	r.mu.Unlock()

	label := profile.Untranslatable
	entries, err := r.ldap.Search(ctx, fmt.Sprintf("(objectSid=%s)", escapeFilter(sid)), "sAMAccountName")
	if err != nil {
		r.ldap.log.Debug("sid lookup failed",
			logger.Field{Key: "sid", Value: sid},
			logger.Field{Key: "error", Value: err.Error()})
	} else if len(entries) > 0 {
		if sam := entries[0].First("sAMAccountName"); sam != "" {
			label = sam
			if r.ldap.cfg.Domain != "" {
				label = r.ldap.cfg.Domain + `\` + sam
			}
		}
	}

	// Lookup errors are not cached so a transient failure does not stick.
	if err == nil {
		r.mu.Lock()
		r.cache[sid] = label
		r.mu.Unlock()
	}
	return label
}

var _ profile.Resolver = (*SIDResolver)(nil)

func escapeFilter(s string) string {
	r := strings.NewReplacer(`\`, `\5c`, `*`, `\2a`, `(`, `\28`, `)`, `\29`, "\x00", `\00`)
	return r.Replace(s)
}

// ParseLDIF parses ldapsearch output. Folded lines are joined and
// base64 values ("attr:: ...") are decoded.
func ParseLDIF(raw string) []Entry {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, " ") && len(lines) > 0 && lines[len(lines)-1] != "" {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}

	var entries []Entry
	cur := Entry{Attrs: map[string][]string{}}
	flush := func() {
		if cur.DN != "" || len(cur.Attrs) > 0 {
			entries = append(entries, cur)
		}
		cur = Entry{Attrs: map[string][]string{}}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := line[idx+1:]
		if strings.HasPrefix(val, ":") {
			decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(val[1:]))
			if err != nil {
				continue
			}
			val = string(decoded)
		} else {
			val = strings.TrimSpace(val)
		}

		if strings.EqualFold(key, "dn") {
			if cur.DN != "" || len(cur.Attrs) > 0 {
				flush()
			}
			cur.DN = val
			continue
		}
		cur.Attrs[key] = append(cur.Attrs[key], val)
	}
	flush()

	return entries
}
