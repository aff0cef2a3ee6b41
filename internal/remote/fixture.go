package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrHostUnreachable is returned by the fixture for hosts marked unreachable.
var ErrHostUnreachable = errors.New("host unreachable")

// FixtureProfile is a profile entry in a fleet fixture.
type FixtureProfile struct {
	RawProfile `yaml:",inline"`
	// DeleteCode is the status the host answers a delete with. Zero removes
	// the profile.
	DeleteCode    int    `yaml:"delete_code"`
	DeleteMessage string `yaml:"delete_message"`
}

// FixtureHost describes one host of a fleet fixture.
type FixtureHost struct {
	Unreachable bool             `yaml:"unreachable"`
	ProductType int              `yaml:"product_type"`
	Caption     string           `yaml:"caption"`
	Error       string           `yaml:"error"`
	DeleteError string           `yaml:"delete_error"`
	Profiles    []FixtureProfile `yaml:"profiles"`
}

// Fixture is a YAML description of a fleet, used for rehearsals and tests.
type Fixture struct {
	Hosts map[string]*FixtureHost `yaml:"hosts"`
}

// FixtureTransport answers tasks from a Fixture. Deletions mutate it, so a
// second inventory reflects the first run.
type FixtureTransport struct {
	mu      sync.Mutex
	fixture *Fixture
	calls   []Request
}

func NewFixtureTransport(f *Fixture) *FixtureTransport {
	if f == nil {
		f = &Fixture{}
	}
	if f.Hosts == nil {
		f.Hosts = map[string]*FixtureHost{}
	}
	return &FixtureTransport{fixture: f}
}

// LoadFixture reads a fleet fixture from a YAML file.
func LoadFixture(path string) (*FixtureTransport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*FixtureTransport, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return NewFixtureTransport(&f), nil
}

func (t *FixtureTransport) host(name string) (*FixtureHost, bool) {
	for k, h := range t.fixture.Hosts {
		if strings.EqualFold(k, name) {
			return h, true
		}
	}
	return nil, false
}

func (t *FixtureTransport) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, req)

	resp := &Response{ID: req.ID, CorrelationID: req.CorrelationID, Version: ProtocolVersion, Status: StatusOK}

	h, ok := t.host(req.Host)
	if !ok || h.Unreachable {
		return nil, ErrHostUnreachable
	}

	var result any
	switch req.Type {
	case TaskInventory:
		if h.Error != "" {
			return failed(resp, h.Error), nil
		}
		result = t.inventory(h)
	case TaskDelete:
		if h.DeleteError != "" {
			return failed(resp, h.DeleteError), nil
		}
		result = t.delete(h, req.SecurityIDs)
	default:
		return failed(resp, fmt.Sprintf("unknown task type: %s", req.Type)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fixture result: %w", err)
	}
	resp.Result = data
	return resp, nil
}

func failed(resp *Response, msg string) *Response {
	resp.Status = StatusError
	resp.Error = msg
	return resp
}

func (t *FixtureTransport) inventory(h *FixtureHost) InventoryResult {
	out := InventoryResult{ProductType: h.ProductType, Caption: h.Caption, Profiles: []RawProfile{}}
	if h.ProductType != ProductTypeWorkstation {
		return out
	}
	for _, p := range h.Profiles {
		out.Profiles = append(out.Profiles, p.RawProfile)
	}
	return out
}

func (t *FixtureTransport) delete(h *FixtureHost, sids []string) DeleteResult {
	sorted := append([]string{}, sids...)
	sort.Strings(sorted)

	out := DeleteResult{Outcomes: []RawOutcome{}}
	for i, sid := range sorted {
		if i > 0 && sorted[i-1] == sid {
			continue
		}
		idx := -1
		for j, p := range h.Profiles {
			if p.SID == sid {
				idx = j
				break
			}
		}
		if idx < 0 {
			out.Outcomes = append(out.Outcomes, RawOutcome{SID: sid, Code: -1, Message: "profile not found"})
			continue
		}
		p := h.Profiles[idx]
		if p.Loaded || p.Special {
			out.Outcomes = append(out.Outcomes, RawOutcome{SID: sid, Code: -1, Message: "profile is loaded or special"})
			continue
		}
		if p.DeleteCode != 0 {
			out.Outcomes = append(out.Outcomes, RawOutcome{SID: sid, Code: p.DeleteCode, Message: p.DeleteMessage})
			continue
		}
		h.Profiles = append(h.Profiles[:idx], h.Profiles[idx+1:]...)
		out.Outcomes = append(out.Outcomes, RawOutcome{SID: sid, Deleted: true})
	}
	return out
}

// Probe reports whether host is reachable in the fixture.
func (t *FixtureTransport) Probe(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.host(host)
	if !ok || h.Unreachable {
		return ErrHostUnreachable
	}
	return nil
}

// Hosts lists the fixture's hosts in name order.
func (t *FixtureTransport) Hosts(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hosts := make([]string, 0, len(t.fixture.Hosts))
	for name := range t.fixture.Hosts {
		hosts = append(hosts, name)
	}
	sort.Strings(hosts)
	return hosts, nil
}

// Calls returns a copy of every request seen so far.
func (t *FixtureTransport) Calls() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.calls...)
}

// CallsOf returns the requests of one task type.
func (t *FixtureTransport) CallsOf(tt TaskType) []Request {
	var out []Request
	for _, r := range t.Calls() {
		if r.Type == tt {
			out = append(out, r)
		}
	}
	return out
}
