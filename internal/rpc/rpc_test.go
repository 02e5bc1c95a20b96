//go:build !windows

package rpc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type echoInvoker struct{}

func (echoInvoker) Invoke(ctx context.Context, toolName string, args json.RawMessage, workspace, sessionID, actor string) (*InvokeResponse, error) {
	return &InvokeResponse{Text: toolName + ":" + sessionID + ":" + actor}, nil
}

type fixedIntrospector struct{ locks, sessions, workflows int }

func (f fixedIntrospector) ActiveLocks() int     { return f.locks }
func (f fixedIntrospector) ActiveSessions() int  { return f.sessions }
func (f fixedIntrospector) ActiveWorkflows() int { return f.workflows }

// startTestServer brings up an in-process server on a temp-dir socket and
// returns a connected client.
func startTestServer(t *testing.T, invoker ToolInvoker, introspector Introspector) (*Server, *Client) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "prizmd.sock")
	srv := NewServer(socketPath, "/scope/root", "scope-1", invoker, introspector)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(context.Background()) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server exited before ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}
	t.Cleanup(func() {
		_ = srv.Stop()
		<-srv.Done()
	})

	client, err := TryConnect(socketPath)
	if err != nil {
		t.Fatalf("TryConnect: %v", err)
	}
	if client == nil {
		t.Fatal("TryConnect returned no client for a live daemon")
	}
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestPingStatusHealth(t *testing.T) {
	_, client := startTestServer(t, echoInvoker{}, nil)

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.ScopeID != "scope-1" || status.ScopeRoot != "/scope/root" {
		t.Fatalf("status = %+v", status)
	}
	if status.PID == 0 {
		t.Fatal("status should carry the daemon pid")
	}

	health, err := client.Health()
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "healthy" {
		t.Fatalf("health = %+v", health)
	}
}

func TestInvokeRoundTrip(t *testing.T) {
	_, client := startTestServer(t, echoInvoker{}, nil)
	client.SetActor("tester")

	resp, err := client.Execute(OpInvoke, &InvokeArgs{ToolName: "prizm_file", Args: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var result InvokeResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Text != "prizm_file::tester" {
		t.Fatalf("result = %+v", result)
	}
}

func TestMetricsReflectIntrospectorAndEmits(t *testing.T) {
	srv, client := startTestServer(t, echoInvoker{}, fixedIntrospector{locks: 2, sessions: 3, workflows: 1})

	srv.EmitMutation("document:created", "document", "d1", map[string]string{"id": "d1"})
	srv.EmitMutation("document:updated", "document", "d1", nil)

	metrics, err := client.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if metrics.EventsEmitted != 2 {
		t.Fatalf("EventsEmitted = %d", metrics.EventsEmitted)
	}
	if metrics.ActiveLocks != 2 || metrics.ActiveSessions != 3 || metrics.ActiveWorkflows != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}
}

func TestRecentMutationsFilterBySince(t *testing.T) {
	srv := NewServer(filepath.Join(t.TempDir(), "d.sock"), "/r", "s", nil, nil)

	srv.EmitMutation("todo:created", "todo-list", "t1", nil)
	cut := time.Now().UnixMilli()
	time.Sleep(2 * time.Millisecond)
	srv.EmitMutation("todo:updated", "todo-list", "t1", nil)

	all := srv.RecentMutations(0)
	if len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}
	recent := srv.RecentMutations(cut)
	if len(recent) != 1 || recent[0].Topic != "todo:updated" {
		t.Fatalf("recent = %+v", recent)
	}
}

func TestUnknownOperationFails(t *testing.T) {
	_, client := startTestServer(t, nil, nil)

	resp, err := client.Execute(Operation("bogus"), nil)
	if err == nil {
		t.Fatal("expected an error for an unknown operation")
	}
	if resp == nil || resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if !strings.Contains(resp.Error, "unknown operation") {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestTryConnectWithoutDaemonReturnsNil(t *testing.T) {
	client, err := TryConnect(filepath.Join(t.TempDir(), "absent.sock"))
	if err != nil {
		t.Fatalf("TryConnect: %v", err)
	}
	if client != nil {
		t.Fatal("expected no client when no daemon is running")
	}
}

func TestShutdownStopsServer(t *testing.T) {
	srv, client := startTestServer(t, nil, nil)

	if err := client.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-srv.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}
