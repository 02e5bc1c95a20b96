// Command prizmd is the per-scope daemon: the one OS process that
// coordinates tool dispatch, background agent sessions,
// workflow steps, file watching, and terminal I/O for a single scope
// root. A CLI (cmd/prizm) or embedding host drives it over the Unix
// socket protocol in internal/rpc.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/daemon"
	"github.com/prizm-dev/prizm/internal/debug"
	"github.com/prizm-dev/prizm/internal/events"
	"github.com/prizm-dev/prizm/internal/hooks"
	"github.com/prizm-dev/prizm/internal/lock"
	"github.com/prizm-dev/prizm/internal/rpc"
	"github.com/prizm-dev/prizm/internal/scope"
	"github.com/prizm-dev/prizm/internal/services"
	"github.com/prizm-dev/prizm/internal/terminal"
	"github.com/prizm-dev/prizm/internal/tools"
	"github.com/prizm-dev/prizm/internal/types"
	"github.com/prizm-dev/prizm/internal/workflow"
)

// Version is overridden at build time via -ldflags.
var Version = "0.0.0-dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prizmd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	debug.SetEnabled(os.Getenv("PRIZM_DEBUG") == "1" || os.Getenv("PRIZM_DEBUG") == "true")

	scopeRoot := os.Getenv("PRIZM_SCOPE_ROOT")
	if scopeRoot == "" {
		if len(os.Args) > 1 {
			scopeRoot = os.Args[1]
		} else {
			var err error
			scopeRoot, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve scope root: %w", err)
			}
		}
	}

	abs, err := filepath.Abs(scopeRoot)
	if err != nil {
		return fmt.Errorf("resolve scope root: %w", err)
	}

	if err := config.Initialize(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rpc.ServerVersion = Version

	locks := lock.New()
	bus := events.New()

	st, err := scope.Open(abs, locks, bus)
	if err != nil {
		var migErr *scope.ErrMigrationRequired
		if errors.As(err, &migErr) {
			return fmt.Errorf("[MIGRATION_REQUIRED] %w", err)
		}
		return fmt.Errorf("open scope %s: %w", abs, err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Cache.Watch(); err != nil {
		debug.Logf("file watcher unavailable, falling back to lazy rescan: %v", err)
	}
	if config.GetBool("search-fts") {
		indexPath := filepath.Join(abs, ".prizm", "search-index.db")
		err := st.Cache.EnableFTS(indexPath, func(rel string) (string, string, error) {
			fi, err := st.MD.ReadFileByPath(rel)
			if err != nil {
				return "", "", err
			}
			if fi == nil || fi.IsBinary {
				return "", "", fmt.Errorf("not indexable: %s", rel)
			}
			title := strings.TrimSuffix(filepath.Base(rel), ".md")
			if t, ok := fi.Frontmatter["title"].(string); ok && t != "" {
				title = t
			}
			return title, fi.Content, nil
		})
		if err != nil {
			debug.Logf("search index unavailable: %v", err)
		}
	}

	hookRunner := hooks.NewRunnerFromScope(abs)
	wireHooks(bus, hookRunner)

	terminals := terminal.New()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	var runner workflow.AgentRunner
	if apiKey != "" {
		r, err := workflow.NewLLMAgentRunner(apiKey, nil)
		if err != nil {
			debug.Logf("agent runner unavailable: %v", err)
		} else {
			runner = r
		}
	}

	engine := workflow.NewEngine(st, locks, bus, terminals, runner)

	cronSvc, err := services.NewCronService(st, engine)
	if err != nil {
		return fmt.Errorf("start cron scheduler: %w", err)
	}
	defer cronSvc.Stop()

	registry := tools.NewRegistry(st, terminals, engine, runner, cronSvc)

	if lr, ok := runner.(*workflow.LLMAgentRunner); ok {
		lr.SetInvoker(registry)
	}

	socketPath := rpc.ShortSocketPath(abs)
	scopeID := daemon.ScopeID(abs)

	server := rpc.NewServer(socketPath, abs, scopeID, registry, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		debug.Logf("received shutdown signal")
		cancel()
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	select {
	case <-server.Ready():
	case err := <-serverErr:
		return fmt.Errorf("start RPC server: %w", err)
	case <-time.After(5 * time.Second):
		debug.Logf("server not ready after 5s, continuing anyway")
	}

	daemonRegistry, err := daemon.NewRegistry()
	if err != nil {
		return fmt.Errorf("open daemon registry: %w", err)
	}
	entry := daemon.Entry{
		ScopeID:    scopeID,
		ScopeRoot:  abs,
		SocketPath: socketPath,
		PID:        os.Getpid(),
		Version:    Version,
		StartedAt:  time.Now(),
	}
	if err := daemonRegistry.Register(entry); err != nil {
		debug.Logf("register daemon: %v", err)
	}
	defer func() { _ = daemonRegistry.Unregister(scopeID, os.Getpid()) }()

	debug.Logf("prizmd ready: scope=%s socket=%s pid=%d", abs, socketPath, os.Getpid())

	<-server.Done()
	if err := <-serverErr; err != nil {
		return err
	}
	return nil
}

// wireHooks fires .prizm/hooks scripts off the event bus, mapping each
// topic onto the hook event it most resembles.
func wireHooks(bus *events.Bus, runner *hooks.Runner) {
	sub := bus.Subscribe(func(events.Event) bool { return true })
	go func() {
		for ev := range sub.Events() {
			topic := string(ev.Topic)
			var hookEvent string
			switch {
			case strings.Contains(topic, "created"):
				hookEvent = hooks.EventCreate
			case strings.Contains(topic, "deleted"), strings.Contains(topic, "step.failed"):
				hookEvent = hooks.EventDelete
			case strings.Contains(topic, "lock.changed"):
				hookEvent = hooks.EventLockChanged
			default:
				hookEvent = hooks.EventUpdate
			}

			runner.Run(hookEvent, hooks.Payload{
				ResourceType: topic,
				ResourceID:   payloadID(ev.Payload),
				Detail:       map[string]any{"scope": ev.Scope, "topic": topic},
			})
		}
	}()
}

// payloadID extracts the resource id from a published event's payload,
// for each entity type the services and the workflow engine publish
// (a workflow run's id is its RunID); other payloads yield "".
func payloadID(payload any) string {
	switch v := payload.(type) {
	case *types.Document:
		return v.ID
	case *types.TodoList:
		return v.ID
	case *types.ScheduleItem:
		return v.ID
	case *types.CronJob:
		return v.ID
	case *workflow.Run:
		return v.RunID
	default:
		return ""
	}
}
