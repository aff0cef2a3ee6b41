// Package executil runs external binaries with bounded time and buffered output.
package executil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-cmd/cmd"
)

// DefaultTimeout applies when ctx carries no deadline.
const DefaultTimeout = 60 * time.Second

// Result is the outcome of one command execution.
type Result struct {
	Stdout []string
	Stderr []string
	Exit   int
	Err    error
}

// Output joins stdout lines.
func (r Result) Output() string {
	return strings.Join(r.Stdout, "\n")
}

// ErrOutput joins stderr lines.
func (r Result) ErrOutput() string {
	return strings.Join(r.Stderr, "\n")
}

// Run executes bin with args. stdin may be nil. A non-zero exit status is
// reported through Err as well as Exit.
func Run(ctx context.Context, stdin io.Reader, bin string, args ...string) Result {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	c := cmd.NewCmdOptions(cmd.Options{Buffered: true}, bin, args...)

	var statusChan <-chan cmd.Status
	if stdin != nil {
		statusChan = c.StartWithStdin(stdin)
	} else {
		statusChan = c.Start()
	}

	select {
	case status := <-statusChan:
		res := Result{Stdout: status.Stdout, Stderr: status.Stderr, Exit: status.Exit, Err: status.Error}
		if res.Err == nil && status.Exit != 0 {
			res.Err = fmt.Errorf("%s exited with status %d", bin, status.Exit)
		}
		return res
	case <-ctx.Done():
		_ = c.Stop()
		status := c.Status()
		err := ctx.Err()
		if err == context.DeadlineExceeded {
			err = fmt.Errorf("command timed out: %w", err)
		}
		return Result{Stdout: status.Stdout, Stderr: status.Stderr, Exit: -1, Err: err}
	}
}
