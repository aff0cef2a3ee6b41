// Package reach partitions hosts by a single liveness probe each.
package reach

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/aatumaykin/profsweep/internal/constants"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/workers"
)

const taskProbe = "probe"

// Prober checks whether a host accepts remote management. A nil error
// means reachable.
type Prober interface {
	Probe(ctx context.Context, host string) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, host string) error

func (f ProberFunc) Probe(ctx context.Context, host string) error {
	return f(ctx, host)
}

// TCPProber dials the WinRM listener.
type TCPProber struct {
	Port    int
	Timeout time.Duration
}

func (p TCPProber) Probe(ctx context.Context, host string) error {
	port := p.Port
	if port == 0 {
		port = constants.DefaultProbePort
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = constants.DefaultProbeTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}

// Partition is the outcome of Filter. Reachable and Unreachable are disjoint
// and together cover the input.
type Partition struct {
	Reachable   []string
	Unreachable []profile.HostSkip
}

// Filter probes every host once, at most concurrency at a time. There is no
// retry: a failed probe is final for the run. Observers see every probe.
func Filter(ctx context.Context, hosts []string, prober Prober, concurrency int, log *logger.Logger, observers ...workers.Observer) Partition {
	if log == nil {
		log = logger.Nop()
	}
	if len(hosts) == 0 {
		return Partition{}
	}
	if concurrency <= 0 || concurrency > len(hosts) {
		concurrency = len(hosts)
	}

	pool := workers.NewPool(concurrency, len(hosts), log)
	pool.Register(taskProbe, func(ctx context.Context, t workers.Task) (any, error) {
		return nil, prober.Probe(ctx, t.ID)
	})
	for _, o := range observers {
		pool.Observe(o)
	}
	pool.Start()
	defer pool.Stop()

	tasks := make([]workers.Task, len(hosts))
	for i, h := range hosts {
		tasks[i] = workers.Task{ID: h, Type: taskProbe}
	}

	var part Partition
	seen := make(map[string]bool, len(hosts))
	for _, r := range pool.Collect(ctx, tasks) {
		seen[r.TaskID] = true
		if r.Error == nil {
			part.Reachable = append(part.Reachable, r.TaskID)
			continue
		}
		log.Debug("host unreachable",
			logger.Field{Key: "host", Value: r.TaskID},
			logger.Field{Key: "error", Value: r.Error.Error()})
		part.Unreachable = append(part.Unreachable, profile.HostSkip{
			Computer: r.TaskID,
			Reason:   profile.ReasonUnreachable,
			Err:      r.Error,
		})
	}

	// A stopped pool may return early; anything unaccounted for is unreachable.
	for _, h := range hosts {
		if !seen[h] {
			part.Unreachable = append(part.Unreachable, profile.HostSkip{
				Computer: h,
				Reason:   profile.ReasonUnreachable,
				Err:      errors.New("probe did not complete"),
			})
		}
	}

	sort.Strings(part.Reachable)
	sort.Slice(part.Unreachable, func(i, j int) bool {
		return part.Unreachable[i].Computer < part.Unreachable[j].Computer
	})
	return part
}

// String summarizes the partition for logs.
func (p Partition) String() string {
	return fmt.Sprintf("%d reachable, %d unreachable", len(p.Reachable), len(p.Unreachable))
}
