package rpc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/duskfs/layerstore/pkg/layer"
)

// ErrServerClosed is returned by Listen after Close has been called.
var ErrServerClosed = errors.New("rpc: server is closed")

// Server hosts a layer.Backend for remote clients. It probes the hosted
// backend for the same optional capabilities layer.Store does, and
// replies MsgError for a read, write, delete, truncate or stat the
// backend doesn't support. Close and Unlink on a backend without them
// are acknowledged with MsgOK and do nothing.
type Server struct {
	backend layer.Backend

	mu       sync.Mutex
	listener net.Listener
	conns    map[uint64]net.Conn
	nextID   uint64
	closed   bool
}

// New hosts backend for remote access.
func New(backend layer.Backend) *Server {
	return &Server{backend: backend, conns: make(map[uint64]net.Conn)}
}

// Listen binds address and serves connections until Close is called.
func (s *Server) Listen(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("rpc: listen: %w", err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()
	return s.acceptLoop()
}

// Addr returns the listener's bound address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}

		s.mu.Lock()
		s.nextID++
		id := s.nextID
		s.conns[id] = conn
		s.mu.Unlock()

		go s.handleConn(id, conn)
	}
}

// Close stops accepting connections and closes every live client socket.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, c := range s.conns {
		c.Close()
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) removeConn(id uint64) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

func (s *Server) handleConn(id uint64, conn net.Conn) {
	defer func() {
		conn.Close()
		s.removeConn(id)
	}()

	r := bufio.NewReader(conn)
	for {
		frame, err := readFrame(r)
		if err != nil {
			return
		}
		resp := s.dispatch(frame)
		if err := writeFrame(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(f Frame) Frame {
	switch f.Type {
	case MsgPing:
		return Frame{Type: MsgPong}

	case MsgReadAt:
		var req ReadAtRequest
		if err := Decode(f.Payload, &req); err != nil {
			return errFrame(err)
		}
		r, ok := layer.SupportsRead(s.backend)
		if !ok {
			return errFrame(errors.New("backend does not support reads"))
		}
		buf := make([]byte, req.Len)
		n, err := r.ReadAt(buf, req.Offset)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return errFrame(err)
		}
		resp, encErr := EncodeFrame(MsgOK, &ReadAtResponse{Data: buf[:n], N: n, EOF: eof})
		if encErr != nil {
			return errFrame(encErr)
		}
		return resp

	case MsgWriteAt:
		var req WriteAtRequest
		if err := Decode(f.Payload, &req); err != nil {
			return errFrame(err)
		}
		w, ok := layer.SupportsWrite(s.backend)
		if !ok {
			return errFrame(errors.New("backend does not support writes"))
		}
		n, err := w.WriteAt(req.Data, req.Offset)
		if err != nil {
			return errFrame(err)
		}
		resp, _ := EncodeFrame(MsgOK, &WriteAtResponse{N: n})
		return resp

	case MsgDeleteAt:
		var req DeleteAtRequest
		if err := Decode(f.Payload, &req); err != nil {
			return errFrame(err)
		}
		d, ok := layer.SupportsDelete(s.backend)
		if !ok {
			return errFrame(errors.New("backend does not support delete"))
		}
		if err := d.DeleteAt(req.Offset, req.Size); err != nil {
			return errFrame(err)
		}
		return Frame{Type: MsgOK}

	case MsgTruncate:
		var req TruncateRequest
		if err := Decode(f.Payload, &req); err != nil {
			return errFrame(err)
		}
		t, ok := layer.SupportsTruncate(s.backend)
		if !ok {
			return errFrame(errors.New("backend does not support truncate"))
		}
		if err := t.Truncate(req.Size); err != nil {
			return errFrame(err)
		}
		return Frame{Type: MsgOK}

	case MsgStat:
		st, ok := layer.SupportsStat(s.backend)
		if !ok {
			return errFrame(errors.New("backend does not support stat"))
		}
		n, err := st.Stat()
		if err != nil {
			return errFrame(err)
		}
		resp, _ := EncodeFrame(MsgOK, &StatResponse{Size: n})
		return resp

	case MsgClose:
		if c, ok := layer.SupportsClose(s.backend); ok {
			if err := c.Close(); err != nil {
				return errFrame(err)
			}
		}
		return Frame{Type: MsgOK}

	case MsgUnlink:
		if u, ok := layer.SupportsUnlink(s.backend); ok {
			if err := u.Unlink(); err != nil {
				return errFrame(err)
			}
		}
		return Frame{Type: MsgOK}

	default:
		return errFrame(fmt.Errorf("unknown message type: %d", f.Type))
	}
}

func errFrame(err error) Frame {
	f, encErr := EncodeFrame(MsgError, &ErrorResponse{Message: err.Error()})
	if encErr != nil {
		return Frame{Type: MsgError}
	}
	return f
}

// readFrame reads one length-prefixed frame: a uint32 payload length
// (type byte included), a type byte, then the payload.
func readFrame(r *bufio.Reader) (Frame, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return Frame{}, err
	}
	typeByte, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	payload := make([]byte, length-1)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	return Frame{Type: MsgType(typeByte), Payload: payload}, nil
}

func writeFrame(w io.Writer, f Frame) error {
	length := uint32(1 + len(f.Payload))
	if err := binary.Write(w, binary.LittleEndian, length); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, f.Type); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}
