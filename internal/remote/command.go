package remote

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/aatumaykin/profsweep/internal/executil"
	"github.com/aatumaykin/profsweep/internal/logger"
)

//go:embed scripts/dispatch.ps1
var dispatchScript string

// DefaultCommand and DefaultArgs start the PowerShell host that runs the
// dispatcher. The script itself is passed with -EncodedCommand.
const DefaultCommand = "pwsh"

var DefaultArgs = []string{"-NoProfile", "-NonInteractive"}

const maxResponseSize = 8 * 1024 * 1024

type CommandConfig struct {
	Command string
	Args    []string
}

// CommandTransport runs each task as a local PowerShell process which reaches
// the host through WinRM.
type CommandTransport struct {
	command string
	args    []string
	log     *logger.Logger
	run     func(ctx context.Context, stdin []byte, bin string, args ...string) executil.Result
}

func NewCommandTransport(cfg CommandConfig, log *logger.Logger) *CommandTransport {
	if log == nil {
		log = logger.Nop()
	}
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}
	args := cfg.Args
	if len(args) == 0 {
		args = DefaultArgs
	}
	args = append(append([]string{}, args...), "-EncodedCommand", EncodeCommand(dispatchScript))

	return &CommandTransport{
		command: command,
		args:    args,
		log:     log,
		run: func(ctx context.Context, stdin []byte, bin string, args ...string) executil.Result {
			return executil.Run(ctx, bytes.NewReader(stdin), bin, args...)
		},
	}
}

func (t *CommandTransport) Invoke(ctx context.Context, req Request) (*Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')

	res := t.run(ctx, data, t.command, t.args...)

	// The dispatcher always prints a response, even when WinRM fails, so
	// stdout wins over the exit status.
	if resp, perr := parseResponse(res.Stdout); perr == nil {
		return resp, nil
	} else if res.Err == nil {
		return nil, &TransportError{Op: string(req.Type), Host: req.Host, Err: perr}
	}

	msg := strings.TrimSpace(res.ErrOutput())
	if msg == "" {
		return nil, &TransportError{Op: string(req.Type), Host: req.Host, Err: res.Err}
	}
	t.log.Debug("remote command failed",
		logger.Field{Key: "host", Value: req.Host},
		logger.Field{Key: "stderr", Value: msg})
	return nil, &TransportError{Op: string(req.Type), Host: req.Host, Err: fmt.Errorf("%w: %s", res.Err, msg)}
}

// parseResponse takes the last JSON object line of the output.
func parseResponse(lines []string) (*Response, error) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if len(line) > maxResponseSize {
			return nil, fmt.Errorf("response exceeds %d bytes", maxResponseSize)
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return nil, fmt.Errorf("invalid response: %w", err)
		}
		return &resp, nil
	}
	return nil, errors.New("no response in command output")
}

// EncodeCommand encodes a script for PowerShell's -EncodedCommand:
// base64 of the UTF-16LE text.
func EncodeCommand(script string) string {
	units := utf16.Encode([]rune(script))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return base64.StdEncoding.EncodeToString(buf)
}
