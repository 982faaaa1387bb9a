package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// DefaultCallTimeout bounds every call except Send.
const DefaultCallTimeout = 10 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn    net.Conn
	client  *rpc.Client
	timeout time.Duration
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient, timeout: DefaultCallTimeout}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any, timeout time.Duration) error {
	call := c.client.Go(serviceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	if timeout <= 0 {
		<-call.Done
		return call.Error
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-call.Done:
		return call.Error
	case <-timer.C:
		return fmt.Errorf("%s: no reply from daemon after %s", method, timeout)
	}
}

// Start requests a batch.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop cancels the active batch.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status with up to reports recent reports.
func (c *Client) Status(reports int) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{Reports: reports}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause suspends processing at the next stage boundary.
func (c *Client) Pause() (*PauseResponse, error) {
	var resp PauseResponse
	if err := c.call("Pause", PauseRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume releases a pause.
func (c *Client) Resume() (*ResumeResponse, error) {
	var resp ResumeResponse
	if err := c.call("Resume", ResumeRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Skip ends the current or next cooldown.
func (c *Client) Skip() (*SkipResponse, error) {
	var resp SkipResponse
	if err := c.call("Skip", SkipRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetCooldown changes the inter-item wait.
func (c *Client) SetCooldown(seconds int) (*SetCooldownResponse, error) {
	var resp SetCooldownResponse
	if err := c.call("SetCooldown", SetCooldownRequest{Seconds: seconds}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns the queue in processing order.
func (c *Client) QueueList() (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.call("QueueList", QueueListRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueAdd appends lines to the queue.
func (c *Client) QueueAdd(lines ...string) (*QueueAddResponse, error) {
	var resp QueueAddResponse
	if err := c.call("QueueAdd", QueueAddRequest{Lines: lines}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns recent outcomes.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send delivers one video outside the queue and waits for the result.
func (c *Client) Send(locator, title string) (*SendResponse, error) {
	var resp SendResponse
	if err := c.call("Send", SendRequest{Locator: locator, Title: title}, &resp, 0); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp, c.timeout); err != nil {
		return nil, err
	}
	return &resp, nil
}
