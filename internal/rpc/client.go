package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// rpcDebugEnabled reports whether PRIZM_RPC_DEBUG is set.
func rpcDebugEnabled() bool {
	val := os.Getenv("PRIZM_RPC_DEBUG")
	return val == "1" || val == "true"
}

func rpcDebugLog(format string, args ...interface{}) {
	if rpcDebugEnabled() {
		fmt.Fprintf(os.Stderr, "[rpc] "+format+"\n", args...)
	}
}

// ClientVersion identifies this client build to the daemon for
// compatibility checks. Overridden at startup from cmd/prizm's build info.
var ClientVersion = "0.0.0"

// Client is a connection to one scope's daemon.
type Client struct {
	conn       net.Conn
	socketPath string
	timeout    time.Duration
	actor      string
}

// endpointExists reports whether a Unix socket file exists at path.
func endpointExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeSocket != 0
}

// dialRPC dials a Unix socket with a bounded timeout.
func dialRPC(socketPath string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", socketPath, timeout)
}

// TryConnect attempts to connect to the daemon socket, returning a nil
// client (not an error) if no daemon is running.
func TryConnect(socketPath string) (*Client, error) {
	return TryConnectWithTimeout(socketPath, 200*time.Millisecond)
}

// TryConnectWithTimeout is TryConnect with an explicit dial timeout.
func TryConnectWithTimeout(socketPath string, dialTimeout time.Duration) (*Client, error) {
	rpcDebugLog("attempting connection to socket: %s", socketPath)

	if !endpointExists(socketPath) {
		rpcDebugLog("socket does not exist, no daemon running")
		return nil, nil
	}

	if dialTimeout <= 0 {
		dialTimeout = 200 * time.Millisecond
	}

	dialStart := time.Now()
	conn, err := dialRPC(socketPath, dialTimeout)
	rpcDebugLog("dial took %v, err=%v", time.Since(dialStart), err)
	if err != nil {
		// Stale socket file left behind by a crashed daemon; clean it up.
		_ = os.Remove(socketPath)
		return nil, nil
	}

	client := &Client{
		conn:       conn,
		socketPath: socketPath,
		timeout:    30 * time.Second,
	}

	health, err := client.Health()
	if err != nil {
		rpcDebugLog("health check failed: %v", err)
		_ = conn.Close()
		return nil, nil
	}
	if health.Status == "unhealthy" {
		rpcDebugLog("daemon unhealthy: %s", health.Error)
		_ = conn.Close()
		return nil, nil
	}

	rpcDebugLog("connected (status=%s, uptime=%.1fs)", health.Status, health.Uptime)
	return client, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SetActor sets the actor recorded in the audit trail for operations this
// client issues.
func (c *Client) SetActor(actor string) {
	c.actor = actor
}

// Execute sends one framed request and waits for its response.
func (c *Client) Execute(operation Operation, args interface{}) (*Response, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	req := Request{
		Operation: operation,
		Args:      argsJSON,
		Actor:     c.actor,
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}

	writer := bufio.NewWriter(c.conn)
	if _, err := writer.Write(reqJSON); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return nil, fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	reader := bufio.NewReader(c.conn)
	respLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !resp.Success {
		return &resp, fmt.Errorf("operation failed: %s", resp.Error)
	}
	return &resp, nil
}

// Ping verifies the daemon is alive.
func (c *Client) Ping() error {
	_, err := c.Execute(OpPing, nil)
	return err
}

// Status retrieves daemon identity and uptime.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.Execute(OpStatus, nil)
	if err != nil {
		return nil, err
	}
	var status StatusResponse
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &status, nil
}

// Health checks whether the daemon can currently serve requests.
func (c *Client) Health() (*HealthResponse, error) {
	resp, err := c.Execute(OpHealth, nil)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		return nil, fmt.Errorf("unmarshal health: %w", err)
	}
	return &health, nil
}

// Shutdown asks the daemon to stop gracefully.
func (c *Client) Shutdown() error {
	_, err := c.Execute(OpShutdown, nil)
	return err
}

// Metrics retrieves event-bus and lock-manager counters.
func (c *Client) Metrics() (*MetricsSnapshot, error) {
	resp, err := c.Execute(OpMetrics, nil)
	if err != nil {
		return nil, err
	}
	var metrics MetricsSnapshot
	if err := json.Unmarshal(resp.Data, &metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return &metrics, nil
}

// Invoke dispatches a single tool call to the daemon's tool registry.
func (c *Client) Invoke(args *InvokeArgs) (*InvokeResponse, error) {
	resp, err := c.Execute(OpInvoke, args)
	if err != nil {
		return nil, err
	}
	var result InvokeResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal invoke response: %w", err)
	}
	return &result, nil
}
