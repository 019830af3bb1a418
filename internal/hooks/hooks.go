// Package hooks runs user scripts from {hooks_dir}/<hook-point>/ for every resolved
// notification.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
)

// OnNotification is the hook point run once per resolved notification.
const OnNotification = "on-notification"

// waitDelay bounds how long a killed script's children may hold its output pipes.
const waitDelay = time.Second

// Failure modes.
const (
	FailIgnore = "ignore"
	FailWarn   = "warn"
	FailAbort  = "abort"
)

// Options configures a Runner.
type Options struct {
	Dir          string
	Enabled      bool
	FailureMode  string
	Async        bool
	AsyncTimeout time.Duration
	MaxAsync     int
	// Disabled lists hook points switched off individually.
	Disabled map[string]bool
}

// OptionsFromGlobal reads hook options from the global configuration.
func OptionsFromGlobal() Options {
	opts := Options{
		Dir:          config.Get("hooks_dir", ""),
		Enabled:      config.GetBool("hooks_enabled", true),
		FailureMode:  config.Get("hooks_failure_mode", FailWarn),
		Async:        config.GetBool("hooks_async", false),
		AsyncTimeout: time.Duration(config.GetInt("hooks_async_timeout", 30)) * time.Second,
		MaxAsync:     config.GetInt("max_hooks", 10),
		Disabled:     map[string]bool{},
	}
	if !config.GetBool("hooks_enabled_on_notification", true) {
		opts.Disabled[OnNotification] = true
	}
	return opts
}

// Runner executes hook scripts. Async hooks are bounded by MaxAsync; Wait blocks until they
// have all finished.
type Runner struct {
	opts   Options
	logger logging.Logger

	mu      sync.Mutex
	pending int
	wg      sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(opts Options, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.GetGlobal()
	}
	if opts.FailureMode == "" {
		opts.FailureMode = FailWarn
	}
	if opts.AsyncTimeout <= 0 {
		opts.AsyncTimeout = 30 * time.Second
	}
	if opts.MaxAsync <= 0 {
		opts.MaxAsync = 10
	}
	return &Runner{opts: opts, logger: logger.With("component", "hooks")}
}

// Init makes sure the hooks directory exists.
func (r *Runner) Init() error {
	if r.opts.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(r.opts.Dir, config.FileModeDir); err != nil {
		return fmt.Errorf("failed to create hooks directory %s: %w", r.opts.Dir, err)
	}
	return nil
}

// Scripts returns the executable scripts of a hook point, sorted by name.
func (r *Runner) Scripts(hookPoint string) []string {
	if r.opts.Dir == "" {
		return nil
	}
	dir := filepath.Join(r.opts.Dir, hookPoint)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Mode()&0111 == 0 {
			continue
		}
		scripts = append(scripts, filepath.Join(dir, e.Name()))
	}
	sort.Strings(scripts)
	return scripts
}

// Run executes every script of hookPoint with env added to the process environment.
// With failure mode abort, the first failing synchronous script stops the run and its
// error is returned.
func (r *Runner) Run(ctx context.Context, hookPoint string, env map[string]string) error {
	if !r.opts.Enabled || r.opts.Disabled[hookPoint] {
		return nil
	}
	scripts := r.Scripts(hookPoint)
	if len(scripts) == 0 {
		return nil
	}

	environ := append(os.Environ(),
		"HOOK_POINT="+hookPoint,
		"HOOK_TIMESTAMP="+time.Now().Format(time.RFC3339),
		config.EnvPrefix+"HOOKS_FAILURE_MODE="+r.opts.FailureMode,
	)
	if exe, err := os.Executable(); err == nil {
		environ = append(environ, config.EnvPrefix+"BINARY="+exe)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		environ = append(environ, k+"="+env[k])
	}

	r.logger.Debug("running hooks", "hook_point", hookPoint, "scripts", len(scripts))
	for _, script := range scripts {
		if r.opts.Async {
			r.startAsync(script, environ)
			continue
		}
		if err := r.runSync(ctx, script, environ); err != nil && r.opts.FailureMode == FailAbort {
			return err
		}
	}
	return nil
}

func (r *Runner) runSync(ctx context.Context, script string, environ []string) error {
	name := filepath.Base(script)
	start := time.Now()
	cmd := exec.CommandContext(ctx, script)
	cmd.Env = environ
	cmd.WaitDelay = waitDelay
	output, err := cmd.CombinedOutput()
	if err != nil {
		r.report(name, err, output)
		return fmt.Errorf("hook %s failed: %w", name, err)
	}
	r.logger.Debug("hook completed", "hook", name, "duration", time.Since(start), "output", trimOutput(output))
	return nil
}

func (r *Runner) startAsync(script string, environ []string) {
	name := filepath.Base(script)
	r.mu.Lock()
	if r.pending >= r.opts.MaxAsync {
		r.mu.Unlock()
		r.logger.Warn("too many async hooks pending, skipping", "hook", name, "max", r.opts.MaxAsync)
		return
	}
	r.pending++
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.pending--
			r.mu.Unlock()
			r.wg.Done()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.AsyncTimeout)
		defer cancel()

		start := time.Now()
		cmd := exec.CommandContext(ctx, script)
		cmd.Env = environ
		cmd.WaitDelay = waitDelay
		output, err := cmd.CombinedOutput()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("async hook timed out", "hook", name, "timeout", r.opts.AsyncTimeout)
			return
		}
		if err != nil {
			r.report(name, err, output)
			return
		}
		r.logger.Debug("async hook completed", "hook", name, "duration", time.Since(start))
	}()
}

func (r *Runner) report(name string, err error, output []byte) {
	if r.opts.FailureMode == FailIgnore {
		return
	}
	r.logger.Warn("hook failed", "hook", name, "error", err, "output", trimOutput(output))
}

// Pending returns the number of async hooks still running.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Wait blocks until every async hook has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func trimOutput(b []byte) string {
	return strings.TrimSpace(string(bytes.ToValidUTF8(b, nil)))
}
