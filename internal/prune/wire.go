package prune

import (
	"fmt"
	"io"

	"github.com/aatumaykin/profsweep/internal/config"
	"github.com/aatumaykin/profsweep/internal/directory"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/metrics"
	"github.com/aatumaykin/profsweep/internal/notify"
	"github.com/aatumaykin/profsweep/internal/reach"
	"github.com/aatumaykin/profsweep/internal/remote"
	"github.com/aatumaykin/profsweep/internal/retry"
)

// FromConfig assembles a Runner from configuration. The configuration must
// already be validated.
func FromConfig(cfg *config.Config, out io.Writer, log *logger.Logger) (*Runner, error) {
	if log == nil {
		log = logger.Nop()
	}

	opts := Options{
		InactiveDays:     cfg.Run.Days(),
		DryRun:           cfg.Run.IsDryRun(),
		Concurrency:      cfg.Run.Concurrency,
		ProbeConcurrency: cfg.Reachability.Concurrency,
		UsersRoot:        cfg.Run.UsersRoot,
		Retry: retry.Policy{
			MaxAttempts: cfg.Remote.MaxAttempts,
			Backoff:     retry.Backoff(cfg.Remote.Backoff),
		},
	}
	deps := Deps{Out: out, Log: log, MetricsTextfile: cfg.Metrics.Textfile}

	var transport remote.Transport
	switch cfg.Remote.Transport {
	case config.TransportFixture:
		fixture, err := remote.LoadFixture(cfg.Remote.FixturePath)
		if err != nil {
			return nil, err
		}
		transport = fixture
		deps.Prober = fixture
	default:
		transport = remote.NewCommandTransport(remote.CommandConfig{
			Command: cfg.Remote.Command,
			Args:    cfg.Remote.Args,
		}, log)
		deps.Prober = reach.TCPProber{
			Port:    cfg.Reachability.Port,
			Timeout: cfg.Reachability.Timeout(),
		}
	}
	deps.Remote = remote.NewClient(transport, remote.ClientConfig{
		UsersRoot:   cfg.Run.UsersRoot,
		IncludeSize: cfg.Run.IncludeSize,
		Timeout:     cfg.Remote.Timeout(),
	}, log)

	var ldap *directory.LDAP
	if cfg.Discovery.LDAP.Enabled || cfg.Identity.DirectoryLookup {
		l := cfg.Discovery.LDAP
		ldap = directory.NewLDAP(directory.LDAPConfig{
			Binary:       l.Binary,
			Host:         l.Host,
			BaseDN:       l.BaseDN,
			BindDN:       l.BindDN,
			Password:     l.Password,
			UseLDAPS:     l.UseLDAPS,
			ServerMarker: l.ServerMarker,
			Domain:       l.Domain,
		}, log)
	}

	source, err := hostSource(cfg, transport, ldap)
	if err != nil {
		return nil, err
	}
	deps.Source = source

	if cfg.Identity.DirectoryLookup && ldap != nil {
		deps.Resolver = directory.NewSIDResolver(ldap)
	}

	if cfg.Metrics.Textfile != "" {
		deps.Metrics = metrics.New(cfg.Metrics.Namespace)
	}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		deps.Notifier = tg
	}

	return NewRunner(opts, deps), nil
}

// hostSource picks the first configured host source: the explicit list, the
// hosts file, the fixture, then LDAP. A nil source means none is configured.
func hostSource(cfg *config.Config, transport remote.Transport, ldap *directory.LDAP) (directory.Source, error) {
	computers, err := directory.SplitHostList(cfg.Run.Computers)
	if err != nil {
		return nil, fmt.Errorf("invalid host list: %w", err)
	}

	switch {
	case len(computers) > 0:
		return directory.StaticSource(computers), nil
	case cfg.Discovery.HostsFile != "":
		return directory.Normalized(directory.FileSource{Path: cfg.Discovery.HostsFile}), nil
	}
	if fixture, ok := transport.(*remote.FixtureTransport); ok {
		return directory.Normalized(fixture), nil
	}
	if cfg.Discovery.LDAP.Enabled && ldap != nil {
		return directory.Normalized(ldap), nil
	}
	return nil, nil
}
