package prune

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/profsweep/internal/config"
	"github.com/aatumaykin/profsweep/internal/directory"
	"github.com/aatumaykin/profsweep/internal/reach"
	"github.com/aatumaykin/profsweep/internal/remote"
)

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Remote.Transport = config.TransportFixture
	cfg.Remote.FixturePath = filepath.Join("..", "remote", "testdata", "fleet.yaml")
	require.Empty(t, cfg.Validate())
	return cfg
}

func TestFromConfig_Fixture(t *testing.T) {
	cfg := fixtureConfig(t)
	var out bytes.Buffer

	r, err := FromConfig(cfg, &out, nil)
	require.NoError(t, err)

	_, ok := r.deps.Prober.(*remote.FixtureTransport)
	assert.True(t, ok)
	assert.Nil(t, r.deps.Metrics)
	assert.Nil(t, r.deps.Resolver)
	assert.True(t, r.opts.DryRun)
	assert.Equal(t, 90, r.opts.InactiveDays)

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, s.HostsQueried)
}

func TestFromConfig_Command(t *testing.T) {
	cfg := config.Default()
	cfg.Reachability.Port = 5986
	cfg.Run.Computers = "ws01, ws02"

	r, err := FromConfig(cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	prober, ok := r.deps.Prober.(reach.TCPProber)
	require.True(t, ok)
	assert.Equal(t, 5986, prober.Port)

	hosts, err := r.deps.Source.Hosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"WS01", "WS02"}, hosts)
}

func TestFromConfig_MetricsAndResolver(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "profsweep.prom")
	cfg.Identity.DirectoryLookup = true
	cfg.Discovery.LDAP.Host = "dc01"
	cfg.Discovery.LDAP.BaseDN = "dc=corp,dc=local"

	r, err := FromConfig(cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, r.deps.Metrics)
	assert.IsType(t, &directory.SIDResolver{}, r.deps.Resolver)
}

func TestHostSource_Precedence(t *testing.T) {
	dir := t.TempDir()
	hostsFile := filepath.Join(dir, "hosts.txt")
	require.NoError(t, os.WriteFile(hostsFile, []byte("ws10\nws11\n"), 0o600))
	fixture := remote.NewFixtureTransport(&remote.Fixture{Hosts: map[string]*remote.FixtureHost{"WS20": {}}})
	ldap := directory.NewLDAP(directory.LDAPConfig{Host: "dc01", BaseDN: "dc=corp"}, nil)

	tests := []struct {
		name      string
		mutate    func(c *config.Config)
		transport remote.Transport
		want      []string
		none      bool
	}{
		{
			name:      "explicit list wins",
			mutate: func(c *config.Config) {
				c.Run.Computers = []any{"ws01"}
				c.Discovery.HostsFile = hostsFile
			},
			transport: fixture,
			want:      []string{"WS01"},
		},
		{
			name:      "hosts file before fixture",
			mutate:    func(c *config.Config) { c.Discovery.HostsFile = hostsFile },
			transport: fixture,
			want:      []string{"WS10", "WS11"},
		},
		{
			name:      "fixture",
			mutate:    func(c *config.Config) {},
			transport: fixture,
			want:      []string{"WS20"},
		},
		{
			name:   "nothing configured",
			mutate: func(c *config.Config) {},
			none:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			src, err := hostSource(cfg, tt.transport, ldap)
			require.NoError(t, err)
			if tt.none {
				assert.Nil(t, src)
				return
			}
			hosts, err := src.Hosts(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, hosts)
		})
	}
}
