package tui

import (
	"encoding/json"
	"net"
	"sync"

	"cryogon/rizumu-udio/ipc"
)

type IPCClient struct {
	conn    net.Conn
	mu      sync.Mutex
	encoder *json.Encoder
	decoder *json.Decoder
}

func NewIPCClient(socketPath string) (*IPCClient, error) {
	if socketPath == "" {
		socketPath = ipc.DefaultSocketPath
	}
	c, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}
	return newClient(c), nil
}

func newClient(c net.Conn) *IPCClient {
	return &IPCClient{
		conn:    c,
		encoder: json.NewEncoder(c),
		decoder: json.NewDecoder(c),
	}
}

// Send writes one command line. Safe for concurrent use.
func (c *IPCClient) Send(cmd ipc.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoder.Encode(cmd)
}

func (c *IPCClient) ReadNext() (ipc.Message, error) {
	var resp ipc.Message
	err := c.decoder.Decode(&resp)
	return resp, err
}

func (c *IPCClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
