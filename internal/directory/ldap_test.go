package directory

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/profsweep/internal/executil"
	"github.com/aatumaykin/profsweep/internal/profile"
)

func TestParseLDIF(t *testing.T) {
	raw := "dn: CN=A,DC=x\nname: A\ndescription: long\n  value\nmemberOf: g1\nmemberOf: g2\n\ndn:: Q049QixEQz14\nname: B\n"

	entries := ParseLDIF(raw)
	require.Len(t, entries, 2)

	assert.Equal(t, "CN=A,DC=x", entries[0].DN)
	assert.Equal(t, "long value", entries[0].First("description"))
	assert.Equal(t, []string{"g1", "g2"}, entries[0].Attrs["memberOf"])
	assert.Equal(t, "CN=B,DC=x", entries[1].DN)
	assert.Equal(t, "B", entries[1].First("NAME"))
}

func fakeLDAP(t *testing.T, cfg LDAPConfig, out string, err error) (*LDAP, *[][]string) {
	t.Helper()
	var calls [][]string
	l := NewLDAP(cfg, nil)
	l.run = func(ctx context.Context, bin string, args ...string) executil.Result {
		calls = append(calls, append([]string{bin}, args...))
		return executil.Result{Stdout: strings.Split(out, "\n"), Err: err}
	}
	return l, &calls
}

func TestLDAP_Hosts(t *testing.T) {
	ldif, err := os.ReadFile("testdata/computers.ldif")
	require.NoError(t, err)

	l, calls := fakeLDAP(t, LDAPConfig{
		Host:         "dc01.corp.example",
		BaseDN:       "DC=corp,DC=example",
		BindDN:       "CN=svc,DC=corp,DC=example",
		Password:     "secret",
		ServerMarker: "Server",
	}, string(ldif), nil)

	hosts, err := l.Hosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"WS01", "WS02"}, hosts)

	require.Len(t, *calls, 1)
	args := (*calls)[0]
	assert.Equal(t, "ldapsearch", args[0])
	assert.Contains(t, args, "ldap://dc01.corp.example")
	assert.Contains(t, args, enabledComputersFilter)
	assert.Contains(t, args, "CN=svc,DC=corp,DC=example")
	assert.Contains(t, args, "-y")
	assert.NotContains(t, args, "secret")
}

func TestLDAP_PasswordNotOnCommandLine(t *testing.T) {
	l := NewLDAP(LDAPConfig{
		Host:     "dc01.corp.example",
		BaseDN:   "DC=corp,DC=example",
		BindDN:   "CN=svc,DC=corp,DC=example",
		Password: "s3cret-pass",
	}, nil)

	var args []string
	var pwFile, content string
	l.run = func(ctx context.Context, bin string, a ...string) executil.Result {
		args = a
		for i, v := range a {
			if v == "-y" && i+1 < len(a) {
				pwFile = a[i+1]
				data, err := os.ReadFile(pwFile)
				require.NoError(t, err)
				content = string(data)
				if runtime.GOOS != "windows" {
					info, err := os.Stat(pwFile)
					require.NoError(t, err)
					assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
				}
			}
		}
		return executil.Result{}
	}

	_, err := l.Search(context.Background(), "(objectClass=*)")
	require.NoError(t, err)

	assert.NotContains(t, args, "-w")
	assert.NotContains(t, args, "s3cret-pass")
	require.NotEmpty(t, pwFile)
	assert.Equal(t, "s3cret-pass", content)
	assert.NoFileExists(t, pwFile)
}

func TestLDAP_AnonymousBindHasNoPasswordFile(t *testing.T) {
	l, calls := fakeLDAP(t, LDAPConfig{Host: "dc", BaseDN: "DC=x"}, "", nil)

	_, err := l.Search(context.Background(), "(objectClass=*)")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.NotContains(t, (*calls)[0], "-y")
	assert.NotContains(t, (*calls)[0], "-D")
}

func TestLDAP_HostsErrors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    LDAPConfig
		out    string
		runErr error
		target error
	}{
		{name: "missing host", cfg: LDAPConfig{BaseDN: "DC=x"}},
		{name: "ldapsearch fails", cfg: LDAPConfig{Host: "dc", BaseDN: "DC=x"}, runErr: errors.New("exit 255")},
		{name: "no computers", cfg: LDAPConfig{Host: "dc", BaseDN: "DC=x"}, out: "", target: ErrEmptyHostList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := fakeLDAP(t, tt.cfg, tt.out, tt.runErr)
			_, err := l.Hosts(context.Background())
			var de *DiscoveryError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "ldap", de.Source)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestSIDResolver(t *testing.T) {
	l, calls := fakeLDAP(t, LDAPConfig{Host: "dc", BaseDN: "DC=x", Domain: "CORP"},
		"dn: CN=Alice,DC=x\nsAMAccountName: alice\n", nil)
	r := NewSIDResolver(l)
	ctx := context.Background()

	assert.Equal(t, `CORP\alice`, r.Resolve(ctx, "WS01", "S-1-5-21-1-2-3-1001"))
	assert.Equal(t, `CORP\alice`, r.Resolve(ctx, "WS02", "S-1-5-21-1-2-3-1001"))
	assert.Len(t, *calls, 1)
	assert.Contains(t, (*calls)[0], "(objectSid=S-1-5-21-1-2-3-1001)")
}

func TestSIDResolver_Miss(t *testing.T) {
	l, calls := fakeLDAP(t, LDAPConfig{Host: "dc", BaseDN: "DC=x"}, "", nil)
	r := NewSIDResolver(l)

	assert.Equal(t, profile.Untranslatable, r.Resolve(context.Background(), "WS01", "S-1-5-21-9"))
	assert.Equal(t, profile.Untranslatable, r.Resolve(context.Background(), "WS01", "S-1-5-21-9"))
	assert.Len(t, *calls, 1)
}

func TestSIDResolver_ErrorNotCached(t *testing.T) {
	l, calls := fakeLDAP(t, LDAPConfig{Host: "dc", BaseDN: "DC=x"}, "", errors.New("can't contact LDAP server"))
	r := NewSIDResolver(l)

	assert.Equal(t, profile.Untranslatable, r.Resolve(context.Background(), "WS01", "S-1"))
	assert.Equal(t, profile.Untranslatable, r.Resolve(context.Background(), "WS01", "S-1"))
	assert.Len(t, *calls, 2)
}

func TestEscapeFilter(t *testing.T) {
	assert.Equal(t, `a\2ab\28c\29\5c`, escapeFilter(`a*b(c)\`))
}
