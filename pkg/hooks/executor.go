package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/netinv/pkg/debug"
)

// maxOutput bounds the hook output kept in a Result.
const maxOutput = 4096

// Result is the outcome of one hook run.
type Result struct {
	Hook     Hook
	Phase    Phase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs the hooks of one save.
type Executor struct {
	config  *Config
	save    SaveContext
	results []Result
}

// NewExecutor prepares the hooks of config for the save described by sc.
func NewExecutor(config *Config, sc SaveContext) *Executor {
	return &Executor{config: config, save: sc}
}

// RunPreSave runs the pre-save hooks in order. The first failing hook with
// on_error=fail stops the run and its error is returned.
func (e *Executor) RunPreSave(ctx context.Context) error {
	for _, h := range e.config.Get(PreSave) {
		r := e.run(ctx, PreSave, h)
		if !r.Success && h.OnError != OnErrorContinue {
			return fmt.Errorf("pre-save hook %q: %w", h.Name, r.Error)
		}
	}
	return nil
}

// RunPostSave runs every post-save hook and returns the errors of those
// with on_error=fail.
func (e *Executor) RunPostSave(ctx context.Context) error {
	var errs []error
	for _, h := range e.config.Get(PostSave) {
		r := e.run(ctx, PostSave, h)
		if !r.Success && h.OnError == OnErrorFail {
			errs = append(errs, fmt.Errorf("post-save hook %q: %w", h.Name, r.Error))
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) run(ctx context.Context, phase Phase, h Hook) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.save.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	// Children of sh may hold the pipes open after a timeout kill.
	cmd.WaitDelay = 100 * time.Millisecond
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     h,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   truncate(strings.TrimSpace(stdout.String()), maxOutput),
		Stderr:   truncate(strings.TrimSpace(stderr.String()), maxOutput),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", timeout)
		} else if r.Stderr != "" {
			err = fmt.Errorf("%w: %s", err, r.Stderr)
		}
		r.Error = err
	}
	debug.Log("hooks: %s %q finished in %s (ok=%v)", phase, h.Name, r.Duration, r.Success)
	e.results = append(e.results, r)
	return r
}

// Results returns every hook run so far.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary is one line per hook run.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, r := range e.results {
		status := "ok"
		if !r.Success {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "%s %s %s (%s)", status, r.Phase, r.Hook.Name, r.Duration.Round(time.Millisecond))
		if r.Error != nil {
			fmt.Fprintf(&sb, ": %v", r.Error)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
