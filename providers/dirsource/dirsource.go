// Package dirsource implements a MetadataProvider/AsyncCaller pair whose
// tool set is defined by a live directory of descriptor files: each
// "<name>.tool.json" file declares a tool descriptor plus the path to a
// private ".js" snippet that implements it, run in its own goja runtime
// per call. The directory is watched with fsnotify, debouncing bursts
// of events into a single rescan; a descriptor file's content fully
// determines its registration state, so no content hashing is needed.
package dirsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/toolbridge/bridge"
)

// fileDescriptor is the on-disk shape of one "<name>.tool.json" file.
type fileDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Inputs      map[string]any `json:"inputs"`
	Outputs     map[string]any `json:"outputs"`
	IsAsync     bool           `json:"is_async"`
	Script      string         `json:"script"` // path to a .js file, relative to the descriptor file's directory
}

type entry struct {
	descriptor bridge.ToolDescriptor
	scriptPath string
}

// Provider serves a live directory of tool descriptor files as a
// bridge.MetadataProvider + bridge.AsyncCaller.
type Provider struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry // name -> entry

	watcher *fsnotify.Watcher
}

// New returns a Provider serving descriptor files found directly under
// dir (non-recursive) and performs an initial scan.
func New(dir string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		dir:      dir,
		debounce: 100 * time.Millisecond,
		logger:   logger,
		entries:  make(map[string]entry),
	}
	if err := p.rescan(); err != nil {
		return nil, fmt.Errorf("initial scan of %q: %w", dir, err)
	}
	return p, nil
}

// Watch starts an fsnotify watch on the descriptor directory, debouncing
// bursts of events of any kind on "*.tool.json" files into a single
// rescan, until ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	p.watcher = w
	if err := w.Add(p.dir); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		pendingCh := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".tool.json") {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(p.debounce, func() {
						select {
						case pendingCh <- struct{}{}:
						default:
						}
					})
				} else {
					timer.Reset(p.debounce)
				}
			case <-pendingCh:
				if err := p.rescan(); err != nil {
					p.logger.Warn("dirsource rescan failed", "dir", p.dir, "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.logger.Warn("dirsource watch error", "error", err)
			}
		}
	}()
	return nil
}

// rescan reloads every "*.tool.json" file under dir, replacing the
// current entry set atomically.
func (p *Provider) rescan() error {
	matches, err := filepath.Glob(filepath.Join(p.dir, "*.tool.json"))
	if err != nil {
		return err
	}

	next := make(map[string]entry, len(matches))
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("dirsource: skipping unreadable descriptor", "path", path, "error", err)
			continue
		}
		var fd fileDescriptor
		if err := json.Unmarshal(raw, &fd); err != nil {
			p.logger.Warn("dirsource: skipping malformed descriptor", "path", path, "error", err)
			continue
		}
		if fd.Name == "" {
			p.logger.Warn("dirsource: descriptor missing name", "path", path)
			continue
		}
		scriptPath := fd.Script
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(filepath.Dir(path), scriptPath)
		}
		next[fd.Name] = entry{
			descriptor: bridge.ToolDescriptor{
				Name:        fd.Name,
				Description: fd.Description,
				Tags:        fd.Tags,
				Inputs:      fd.Inputs,
				Outputs:     fd.Outputs,
				IsAsync:     fd.IsAsync,
			},
			scriptPath: scriptPath,
		}
	}

	p.mu.Lock()
	p.entries = next
	p.mu.Unlock()
	return nil
}

// ListTools returns the descriptors for every currently valid descriptor
// file.
func (p *Provider) ListTools() ([]bridge.ToolDescriptor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]bridge.ToolDescriptor, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.descriptor)
	}
	return out, nil
}

// Call runs name's private script in a fresh goja runtime and invokes its
// top-level "main" function with args as its only argument.
// The script's return value is passed back verbatim, whatever JSON shape
// it takes — an object, array, string, number, boolean, or null.
func (p *Provider) Call(_ context.Context, name string, args map[string]any) (any, error) {
	p.mu.RLock()
	e, ok := p.entries[name]
	p.mu.RUnlock()
	if !ok {
		return nil, bridge.NewCallError(fmt.Sprintf("unknown tool: %s", name))
	}

	source, err := os.ReadFile(e.scriptPath)
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("load script for %q: %s", name, err))
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if _, err := vm.RunScript(e.scriptPath, string(source)); err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("compile script for %q: %s", name, err))
	}

	mainFn, ok := goja.AssertFunction(vm.Get("main"))
	if !ok {
		return nil, bridge.NewCallError(fmt.Sprintf("script for %q does not define a top-level main(args) function", name))
	}

	result, err := mainFn(goja.Undefined(), vm.ToValue(args))
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("script %q failed: %s", name, err))
	}

	return result.Export(), nil
}
