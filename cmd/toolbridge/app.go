package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/toolbridge/bridge"
	"github.com/c360studio/toolbridge/config"
	"github.com/c360studio/toolbridge/executor"
	"github.com/c360studio/toolbridge/metrics"
	"github.com/c360studio/toolbridge/providers/codeoutline"
	"github.com/c360studio/toolbridge/providers/dirsource"
	"github.com/c360studio/toolbridge/providers/filetools"
	"github.com/c360studio/toolbridge/providers/mcp"
	"github.com/c360studio/toolbridge/providers/webfetch"
	"github.com/c360studio/toolbridge/service"
	"github.com/c360studio/toolbridge/store"
)

// App wires a bridge.Client together with its executor pool and every
// configured tool provider.
type App struct {
	cfg *config.Config

	pool   *executor.Pool
	client *bridge.Client

	mcpProviders []*mcp.Provider
	dirProvider  *dirsource.Provider

	component *service.Component
}

// NewApp builds an App from cfg but does not start any background
// goroutines or network connections; call Start for that.
func NewApp(cfg *config.Config) (*App, error) {
	return &App{cfg: cfg}, nil
}

// Start registers every enabled provider against a fresh bridge.Client
// and, for providers with a background component (MCP subprocesses, the
// directory watcher), starts them.
func (a *App) Start(ctx context.Context) error {
	a.pool = executor.NewPool(ctx, a.cfg.Executor.MaxConcurrent, slog.Default())
	a.client = bridge.NewClient(bridge.Config{
		TimeoutMS: a.cfg.Bridge.TimeoutMS,
		MaxHeapMB: a.cfg.Bridge.MaxHeapMB,
		Executor:  a.pool,
		Logger:    slog.Default(),
	})

	allowlist := a.cfg.Tools.Allowlist

	fileProvider := filetools.New(a.cfg.Repo.Path)
	if err := a.client.RegisterSyncSource(newAllowlistSource(fileProvider, "file", allowlist), instrumentedSync{fileProvider}, "file"); err != nil {
		return fmt.Errorf("register file tools: %w", err)
	}

	if a.cfg.Providers.WebFetch.Enabled {
		webProvider := webfetch.New()
		if err := a.client.RegisterAsyncSource(newAllowlistSource(webProvider, "web", allowlist), instrumentedAsync{webProvider}, "web"); err != nil {
			return fmt.Errorf("register web tools: %w", err)
		}
	}

	if a.cfg.Providers.CodeOutline.Enabled {
		codeProvider := codeoutline.New()
		if err := a.client.RegisterSyncSource(newAllowlistSource(codeProvider, "code", allowlist), instrumentedSync{codeProvider}, "code"); err != nil {
			return fmt.Errorf("register code tools: %w", err)
		}
	}

	if a.cfg.Providers.DirSource.Enabled {
		dirProvider, err := dirsource.New(a.cfg.Providers.DirSource.Dir, slog.Default())
		if err != nil {
			return fmt.Errorf("load directory tool source: %w", err)
		}
		if err := dirProvider.Watch(ctx); err != nil {
			return fmt.Errorf("watch directory tool source: %w", err)
		}
		prefix := a.cfg.Providers.DirSource.Prefix
		if err := a.client.RegisterAsyncSource(newAllowlistSource(dirProvider, prefix, allowlist), instrumentedAsync{dirProvider}, prefix); err != nil {
			return fmt.Errorf("register directory tools: %w", err)
		}
		a.dirProvider = dirProvider
	}

	for _, mcfg := range a.cfg.Providers.MCP {
		mcpProvider := mcp.New(mcfg.Name, mcfg.Command, mcfg.Args, mcfg.Env)
		if err := mcpProvider.Start(ctx); err != nil {
			return fmt.Errorf("start mcp server %q: %w", mcfg.Name, err)
		}
		if err := a.client.RegisterAsyncSource(newAllowlistSource(mcpProvider, mcfg.Prefix, allowlist), instrumentedAsync{mcpProvider}, mcfg.Prefix); err != nil {
			return fmt.Errorf("register mcp server %q tools: %w", mcfg.Name, err)
		}
		a.mcpProviders = append(a.mcpProviders, mcpProvider)
	}

	return nil
}

// instrumentedAsync wraps an AsyncCaller with per-call Prometheus
// counters and latency observation, keyed by the provider-visible raw
// name.
type instrumentedAsync struct {
	inner bridge.AsyncCaller
}

func (c instrumentedAsync) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	start := time.Now()
	metrics.PendingToolCalls.Inc()
	defer metrics.PendingToolCalls.Dec()

	result, err := c.inner.Call(ctx, name, args)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ObserveToolCall(name, status, time.Since(start))
	return result, err
}

// instrumentedSync is instrumentedAsync's counterpart for sync callers;
// sync calls never count toward the pending gauge because they complete
// before the stub returns.
type instrumentedSync struct {
	inner bridge.SyncCaller
}

func (c instrumentedSync) Call(name string, args map[string]any) (any, error) {
	start := time.Now()
	result, err := c.inner.Call(name, args)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ObserveToolCall(name, status, time.Since(start))
	return result, err
}

// allowlistSource filters a provider's tool list down to the configured
// allowlist, matched against the prefixed name each tool will be
// registered under. An empty allowlist admits everything.
type allowlistSource struct {
	inner  bridge.MetadataProvider
	prefix string
	allow  map[string]bool
}

func newAllowlistSource(inner bridge.MetadataProvider, prefix string, allowlist []string) bridge.MetadataProvider {
	if len(allowlist) == 0 {
		return inner
	}
	allow := make(map[string]bool, len(allowlist))
	for _, name := range allowlist {
		allow[name] = true
	}
	return allowlistSource{inner: inner, prefix: prefix, allow: allow}
}

func (s allowlistSource) ListTools() ([]bridge.ToolDescriptor, error) {
	descs, err := s.inner.ListTools()
	if err != nil {
		return nil, err
	}
	out := make([]bridge.ToolDescriptor, 0, len(descs))
	for _, d := range descs {
		registered := d.Name
		if s.prefix != "" {
			registered = s.prefix + "." + d.Name
		}
		if s.allow[registered] {
			out = append(out, d)
		}
	}
	return out, nil
}

// Shutdown stops every background provider and, if a service.Component
// was started, drains it.
func (a *App) Shutdown(timeout time.Duration) {
	for _, p := range a.mcpProviders {
		_ = p.Stop()
	}
	if a.component != nil {
		_ = a.component.Shutdown(timeout)
	}
}

// RunScript executes script through the wired bridge.Client.
func (a *App) RunScript(script string) (any, error) {
	return a.client.CallToolChain(script)
}

// Serve starts a service.Component exposing the wired client over NATS
// and blocks until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.Collectors()...)
	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Default().Warn("metrics server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	a.component = service.NewComponent(a.client, service.Config{
		URL:    a.cfg.NATS.URL,
		Logger: slog.Default(),
	})
	if err := a.component.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	recordStore, err := store.New(ctx, a.component.JetStream())
	if err != nil {
		slog.Default().Warn("execution record store unavailable", "error", err)
	} else {
		a.component.SetRecordStore(recordStore)
	}

	<-ctx.Done()
	return nil
}

func newRunCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run [script-file]",
		Short: "Execute a script file through the bridge and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadCfg()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			app, err := NewApp(cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			defer app.Shutdown(5 * time.Second)

			result, err := app.RunScript(string(data))
			if err != nil {
				return fmt.Errorf("script failed: %w", err)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newServeCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tool bridge as a long-lived NATS service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadCfg()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			app, err := NewApp(cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			defer app.Shutdown(5 * time.Second)

			return app.Serve(ctx)
		},
	}
}

func newToolsCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	var showInterface bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List every tool registered with the bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadCfg()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			app, err := NewApp(cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			defer app.Shutdown(5 * time.Second)

			if showInterface {
				fmt.Print(app.client.AllInterfaceText())
				return nil
			}
			for _, tool := range app.client.GetTools() {
				fmt.Printf("%s - %s\n", tool.Name, tool.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showInterface, "interface", false, "print generated TypeScript interface text instead of a plain list")
	cmd.AddCommand(newToolsWatchCmd())
	return cmd
}

// newToolsWatchCmd exercises the directory tool source standalone: it
// watches a descriptor directory and prints the tool set as files are
// added and removed, until interrupted.
func newToolsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a tool descriptor directory and print the tool set as it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, err := dirsource.New(args[0], slog.Default())
			if err != nil {
				return fmt.Errorf("load directory tool source: %w", err)
			}
			if err := provider.Watch(ctx); err != nil {
				return fmt.Errorf("watch directory tool source: %w", err)
			}

			prev := map[string]bool{}
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				tools, err := provider.ListTools()
				if err != nil {
					return fmt.Errorf("list tools: %w", err)
				}
				current := make(map[string]bool, len(tools))
				for _, tool := range tools {
					current[tool.Name] = true
					if !prev[tool.Name] {
						fmt.Printf("+ %s\n", tool.Name)
					}
				}
				for name := range prev {
					if !current[name] {
						fmt.Printf("- %s\n", name)
					}
				}
				prev = current

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}
