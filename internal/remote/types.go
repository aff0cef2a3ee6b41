// Package remote carries profile inventory and deletion tasks to managed hosts.
//
// A task is a JSON Request handed to a Transport, which answers with a JSON
// Response. CommandTransport ships requests to a PowerShell remoting shim;
// FixtureTransport serves them from a YAML description of a fleet.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

const ProtocolVersion = "1.0"

type TaskType string

const (
	TaskInventory TaskType = "inventory"
	TaskDelete    TaskType = "delete"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ProductTypeWorkstation is the Win32_OperatingSystem.ProductType of client editions.
const ProductTypeWorkstation = 1

type Request struct {
	Version       string   `json:"version"`
	ID            string   `json:"id"`
	CorrelationID string   `json:"correlation_id,omitempty"`
	Type          TaskType `json:"type"`
	Host          string   `json:"host"`
	UsersRoot     string   `json:"users_root,omitempty"` // informational, hosts report every profile
	IncludeSize   bool     `json:"include_size,omitempty"`
	SecurityIDs   []string `json:"sids,omitempty"`
	Timeout       int      `json:"timeout"`
}

type Response struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Status        string          `json:"status"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	Version       string          `json:"version,omitempty"`
}

// Transport executes one task against one host.
type Transport interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// RawProfile is a profile as reported by the host, before normalization.
// LastUse is left untyped: hosts report it as CIM datetime strings,
// FILETIME ticks, ISO strings or nothing at all.
type RawProfile struct {
	SID       string `json:"sid" yaml:"sid"`
	LocalPath string `json:"local_path" yaml:"local_path"`
	Loaded    bool   `json:"loaded" yaml:"loaded"`
	Special   bool   `json:"special" yaml:"special"`
	Account   string `json:"account,omitempty" yaml:"account,omitempty"`
	LastUse   any    `json:"last_use" yaml:"last_use"`
	SizeBytes *int64 `json:"size_bytes" yaml:"size_bytes"`
}

type InventoryResult struct {
	ProductType int          `json:"product_type"`
	Caption     string       `json:"caption"`
	Profiles    []RawProfile `json:"profiles"`
}

// Workstation reports whether the host runs a client edition of Windows.
func (r *InventoryResult) Workstation() bool {
	return r.ProductType == ProductTypeWorkstation
}

type RawOutcome struct {
	SID     string `json:"sid"`
	Deleted bool   `json:"deleted"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type DeleteResult struct {
	Outcomes []RawOutcome `json:"outcomes"`
}

func timeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if s == 0 {
		s = 1
	}
	return s
}
