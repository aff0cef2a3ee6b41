// Package inventory collects profile records from reachable hosts in parallel
// and folds the per-host results into one run-wide view after a barrier.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aatumaykin/profsweep/internal/constants"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/remote"
	"github.com/aatumaykin/profsweep/internal/retry"
	"github.com/aatumaykin/profsweep/internal/workers"
)

const taskInventory = "inventory"

// Inventorier fetches the raw profile list of one host.
type Inventorier interface {
	Inventory(ctx context.Context, host string) (*remote.InventoryResult, error)
}

type Config struct {
	UsersRoot   string
	Concurrency int
	Retry       retry.Policy
	Observer    workers.Observer // optional per-task hook
}

// Collector runs the inventory routine on many hosts at once.
type Collector struct {
	client   Inventorier
	resolver profile.Resolver
	cfg      Config
	log      *logger.Logger
}

// NewCollector builds a Collector. resolver may be nil, in which case only
// host-reported translations and path fallbacks are used.
func NewCollector(client Inventorier, resolver profile.Resolver, cfg Config, log *logger.Logger) *Collector {
	if cfg.UsersRoot == "" {
		cfg.UsersRoot = constants.DefaultUsersRoot
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{client: client, resolver: resolver, cfg: cfg, log: log}
}

// HostResult is the tagged outcome of one host's collection task.
type HostResult struct {
	Computer    string
	Workstation bool
	Caption     string
	Analyzed    int // profiles the host enumerated
	Records     []profile.Record
	Err         error
}

// Result is the run-wide fold of every HostResult.
type Result struct {
	Hosts    []HostResult
	Records  []profile.Record
	Skipped  []profile.HostSkip
	Analyzed int
}

// Eligible returns the eligible records.
func (r Result) Eligible() []profile.Record {
	var out []profile.Record
	for _, rec := range r.Records {
		if rec.Eligible {
			out = append(out, rec)
		}
	}
	return out
}

// Collect inventories hosts and judges every record against cutoff. A failing
// host contributes no records and lands in Skipped once; other hosts are not
// affected.
func (c *Collector) Collect(ctx context.Context, hosts []string, cutoff time.Time) Result {
	if len(hosts) == 0 {
		return Result{}
	}
	concurrency := c.cfg.Concurrency
	if concurrency > len(hosts) {
		concurrency = len(hosts)
	}

	pool := workers.NewPool(concurrency, len(hosts), c.log)
	pool.Register(taskInventory, func(ctx context.Context, t workers.Task) (any, error) {
		return c.collectHost(ctx, t.ID, cutoff)
	})
	if c.cfg.Observer != nil {
		pool.Observe(c.cfg.Observer)
	}
	pool.Start()
	defer pool.Stop()

	tasks := make([]workers.Task, len(hosts))
	for i, h := range hosts {
		tasks[i] = workers.Task{ID: h, Type: taskInventory}
	}

	byHost := make(map[string]HostResult, len(hosts))
	for _, r := range pool.Collect(ctx, tasks) {
		hr, _ := r.Value.(HostResult)
		hr.Computer = r.TaskID
		if r.Error != nil {
			hr = HostResult{Computer: r.TaskID, Err: r.Error}
		}
		byHost[r.TaskID] = hr
	}

	var res Result
	for _, h := range hosts {
		hr, ok := byHost[h]
		if !ok {
			hr = HostResult{Computer: h, Err: fmt.Errorf("inventory of %s did not complete", h)}
		}
		res.Hosts = append(res.Hosts, hr)

		if hr.Err != nil {
			c.log.Warn("inventory failed",
				logger.Field{Key: "host", Value: h},
				logger.Field{Key: "error", Value: hr.Err.Error()})
			res.Skipped = append(res.Skipped, profile.HostSkip{Computer: h, Reason: profile.ReasonError, Err: hr.Err})
			continue
		}
		res.Analyzed += hr.Analyzed
		res.Records = append(res.Records, hr.Records...)
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		if res.Records[i].Computer != res.Records[j].Computer {
			return res.Records[i].Computer < res.Records[j].Computer
		}
		return res.Records[i].SecurityID < res.Records[j].SecurityID
	})
	return res
}

func (c *Collector) collectHost(ctx context.Context, host string, cutoff time.Time) (HostResult, error) {
	inv, err := retry.Do(ctx, c.cfg.Retry, c.log, func(ctx context.Context) (*remote.InventoryResult, error) {
		return c.client.Inventory(ctx, host)
	})
	if err != nil {
		return HostResult{}, err
	}

	hr := HostResult{Computer: host, Workstation: inv.Workstation(), Caption: inv.Caption}
	if !hr.Workstation {
		c.log.Debug("not a workstation, excluded",
			logger.Field{Key: "host", Value: host},
			logger.Field{Key: "caption", Value: inv.Caption})
		return hr, nil
	}

	hr.Analyzed = len(inv.Profiles)
	reported := profile.StaticResolver{}
	for _, p := range inv.Profiles {
		if p.Account != "" {
			reported[p.SID] = p.Account
		}
	}
	resolver := profile.ChainResolver{reported, c.resolver}

	seen := make(map[string]string, len(inv.Profiles))
	for _, p := range inv.Profiles {
		if !c.keep(p) {
			continue
		}
		if first, dup := seen[p.SID]; dup {
			c.log.Warn("duplicate profile SID, keeping the first",
				logger.Field{Key: "host", Value: host},
				logger.Field{Key: "sid", Value: p.SID},
				logger.Field{Key: "kept_path", Value: first},
				logger.Field{Key: "dropped_path", Value: p.LocalPath})
			continue
		}
		seen[p.SID] = p.LocalPath
		last := profile.LastUsePtr(p.LastUse)
		hr.Records = append(hr.Records, profile.Record{
			Computer:     host,
			SecurityID:   p.SID,
			AccountLabel: profile.AccountLabel(resolver.Resolve(ctx, host, p.SID), p.LocalPath, p.SID),
			LocalPath:    p.LocalPath,
			LastUseUTC:   last,
			Eligible:     profile.Eligible(last, cutoff),
			SizeBytes:    p.SizeBytes,
		})
	}
	return hr, nil
}

// keep drops special, loaded and out-of-root profiles and those without a SID.
func (c *Collector) keep(p remote.RawProfile) bool {
	if p.Special || p.Loaded {
		return false
	}
	if strings.TrimSpace(p.SID) == "" {
		return false
	}
	return profile.UnderRoot(p.LocalPath, c.cfg.UsersRoot)
}
