package main

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dshills/textcore/internal/core"
	"github.com/dshills/textcore/internal/log"
	"github.com/dshills/textcore/internal/rpc"
)

// transport is one reliable, ordered message channel to a client.
type transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// stdioTransport frames messages as newline-delimited JSON over a
// reader/writer pair, the default client channel.
type stdioTransport struct {
	scanner *bufio.Scanner

	mu sync.Mutex
	w  io.Writer
}

func newStdioTransport(r io.Reader, w io.Writer) *stdioTransport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &stdioTransport{scanner: scanner, w: w}
}

func (t *stdioTransport) ReadMessage() ([]byte, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := make([]byte, len(t.scanner.Bytes()))
	copy(line, t.scanner.Bytes())
	return line, nil
}

func (t *stdioTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(data); err != nil {
		return err
	}
	_, err := t.w.Write([]byte{'\n'})
	return err
}

func (t *stdioTransport) Close() error {
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// wsTransport frames messages as WebSocket text frames.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// session pumps one client channel: inbound frames dispatch into the
// core, and the core's client-bound notifications flow back out.
type session struct {
	transport transport
	core      *core.Core
	logger    *log.Logger
}

func newSession(t transport, logger *log.Logger) *session {
	return &session{transport: t, logger: logger.WithComponent("session")}
}

// Notify implements core.Frontend.
func (s *session) Notify(method string, params any) {
	data, err := rpc.EncodeNotification(method, params)
	if err != nil {
		s.logger.Error("encode %s: %v", method, err)
		return
	}
	if err := s.transport.WriteMessage(data); err != nil {
		s.logger.Warn("write %s: %v", method, err)
	}
}

// run reads frames until the channel closes. A bad frame is answered
// or logged and never stops the loop.
func (s *session) run() error {
	for {
		data, err := s.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				return nil
			}
			return err
		}
		s.handle(data)
	}
}

func (s *session) handle(data []byte) {
	frame, err := rpc.DecodeFrame(data)
	if err != nil {
		s.logger.Warn("bad frame: %v", err)
		return
	}

	if frame.IsRequest() {
		result, respErr := s.dispatchRequest(frame)
		reply, err := rpc.EncodeResponse(*frame.ID, result, respErr)
		if err != nil {
			s.logger.Error("encode reply %d: %v", *frame.ID, err)
			return
		}
		if err := s.transport.WriteMessage(reply); err != nil {
			s.logger.Warn("write reply %d: %v", *frame.ID, err)
		}
		return
	}

	cmd, err := rpc.ParseCoreNotification(frame.Method, frame.Params)
	if err != nil {
		s.logger.Warn("notification %s: %v", frame.Method, err)
		return
	}
	if err := s.core.HandleNotification(cmd); err != nil {
		// Notifications have no reply slot; the rejection reason is
		// surfaced as an alert so it is never silent.
		s.logger.Warn("%s rejected: %v", frame.Method, err)
		s.Notify("alert", map[string]any{"msg": err.Error()})
	}
}

func (s *session) dispatchRequest(frame rpc.Frame) (any, *rpc.ResponseError) {
	req, err := rpc.ParseCoreRequest(frame.Method, frame.Params)
	if err != nil {
		code := rpc.CodeBadParams
		if errors.Is(err, rpc.ErrUnknownMethod) {
			code = rpc.CodeUnknownMethod
		}
		return nil, &rpc.ResponseError{Code: code, Message: err.Error()}
	}
	return s.core.HandleRequest(req)
}
