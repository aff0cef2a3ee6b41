package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/profsweep/internal/logger"
)

// Client builds requests, invokes them on a Transport and decodes results.
type Client struct {
	transport Transport
	usersRoot string
	withSize  bool
	timeout   time.Duration
	log       *logger.Logger
}

type ClientConfig struct {
	UsersRoot   string
	IncludeSize bool
	Timeout     time.Duration
}

func NewClient(t Transport, cfg ClientConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		transport: t,
		usersRoot: cfg.UsersRoot,
		withSize:  cfg.IncludeSize,
		timeout:   cfg.Timeout,
		log:       log,
	}
}

// Inventory lists the profiles of host.
func (c *Client) Inventory(ctx context.Context, host string) (*InventoryResult, error) {
	req := c.newRequest(TaskInventory, host)
	req.UsersRoot = c.usersRoot
	req.IncludeSize = c.withSize

	var out InventoryResult
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the given profiles from host. The result may cover fewer
// SIDs than requested; callers reconcile.
func (c *Client) Delete(ctx context.Context, host string, sids []string) (*DeleteResult, error) {
	req := c.newRequest(TaskDelete, host)
	req.SecurityIDs = sids

	var out DeleteResult
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(t TaskType, host string) Request {
	return Request{
		Version:       ProtocolVersion,
		ID:            uuid.NewString(),
		CorrelationID: uuid.NewString(),
		Type:          t,
		Host:          host,
		Timeout:       timeoutSeconds(c.timeout),
	}
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.Debug("invoke remote task",
		logger.Field{Key: "type", Value: req.Type},
		logger.Field{Key: "host", Value: req.Host},
		logger.Field{Key: "correlation_id", Value: req.CorrelationID})

	resp, err := c.transport.Invoke(ctx, req)
	if err != nil {
		return wrap(string(req.Type), req.Host, err)
	}
	if resp == nil {
		return wrap(string(req.Type), req.Host, ErrEmptyResponse)
	}
	if resp.ID != "" && resp.ID != req.ID {
		return wrap(string(req.Type), req.Host,
			fmt.Errorf("%w: id %q, want %q", ErrResponseMismatch, resp.ID, req.ID))
	}
	if resp.Status != StatusOK {
		msg := resp.Error
		if msg == "" {
			msg = fmt.Sprintf("status %q", resp.Status)
		}
		return wrap(string(req.Type), req.Host, &RemoteError{Message: msg})
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return wrap(string(req.Type), req.Host, ErrEmptyResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Result))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return wrap(string(req.Type), req.Host, fmt.Errorf("decode result: %w", err))
	}
	return nil
}

func wrap(op, host string, err error) error {
	if te, ok := err.(*TransportError); ok {
		return te
	}
	return &TransportError{Op: op, Host: host, Err: err}
}
