package rpc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// errEOF is returned by ReadAt for a short read, matching io.ReaderAt
// convention the way layer.Reader documents it.
var errEOF = io.EOF

// Client is a layer.Backend that forwards every operation to a remote
// Server over a single persistent connection. It implements every
// optional capability (Opener, Reader, Writer, Deleter, Truncater,
// Stater, Closer, Unlinker); the server reports back ErrorResponse if
// the backend it's hosting doesn't support a read, write, delete,
// truncate or stat, and acknowledges Close and Unlink as no-ops there.
type Client struct {
	address string

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// NewClient returns a Client for address. The connection is established
// lazily, on first Open or first call.
func NewClient(address string) *Client {
	return &Client{address: address}
}

func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConnLocked()
}

func (c *Client) ensureConnLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return fmt.Errorf("rpc: dial %s: %w", c.address, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

func (c *Client) roundTrip(msgType MsgType, payload interface{}) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnLocked(); err != nil {
		return Frame{}, err
	}

	req, err := EncodeFrame(msgType, payload)
	if err != nil {
		return Frame{}, err
	}
	if err := writeFrame(c.conn, req); err != nil {
		return Frame{}, fmt.Errorf("rpc: send: %w", err)
	}
	resp, err := readFrame(c.r)
	if err != nil {
		return Frame{}, fmt.Errorf("rpc: receive: %w", err)
	}
	if resp.Type == MsgError {
		var e ErrorResponse
		if decErr := Decode(resp.Payload, &e); decErr != nil {
			return Frame{}, fmt.Errorf("rpc: decode error response: %w", decErr)
		}
		return Frame{}, errors.New(e.Message)
	}
	return resp, nil
}

func (c *Client) ReadAt(buf []byte, offset int64) (int, error) {
	resp, err := c.roundTrip(MsgReadAt, &ReadAtRequest{Offset: offset, Len: len(buf)})
	if err != nil {
		return 0, err
	}
	var r ReadAtResponse
	if err := Decode(resp.Payload, &r); err != nil {
		return 0, err
	}
	copy(buf, r.Data)
	if r.EOF {
		return r.N, errEOF
	}
	return r.N, nil
}

func (c *Client) WriteAt(buf []byte, offset int64) (int, error) {
	resp, err := c.roundTrip(MsgWriteAt, &WriteAtRequest{Offset: offset, Data: buf})
	if err != nil {
		return 0, err
	}
	var w WriteAtResponse
	if err := Decode(resp.Payload, &w); err != nil {
		return 0, err
	}
	return w.N, nil
}

func (c *Client) DeleteAt(offset, size int64) error {
	_, err := c.roundTrip(MsgDeleteAt, &DeleteAtRequest{Offset: offset, Size: size})
	return err
}

func (c *Client) Truncate(size int64) error {
	_, err := c.roundTrip(MsgTruncate, &TruncateRequest{Size: size})
	return err
}

func (c *Client) Stat() (int64, error) {
	resp, err := c.roundTrip(MsgStat, nil)
	if err != nil {
		return 0, err
	}
	var s StatResponse
	if err := Decode(resp.Payload, &s); err != nil {
		return 0, err
	}
	return s.Size, nil
}

func (c *Client) Close() error {
	_, err := c.roundTrip(MsgClose, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return err
}

func (c *Client) Unlink() error {
	_, err := c.roundTrip(MsgUnlink, nil)
	return err
}

// Ping round-trips a liveness check against the server.
func (c *Client) Ping() error {
	_, err := c.roundTrip(MsgPing, nil)
	return err
}
