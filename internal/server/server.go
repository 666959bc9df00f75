// Package server implements the JSON-lines TCP boundary: one goroutine per
// connection, one newline-delimited command descriptor per request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/seltzer-io/seltzerd/internal/dispatch"
	"github.com/seltzer-io/seltzerd/internal/protocol"
)

// Server accepts client connections and feeds commands to the dispatcher.
type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger

	ln net.Listener
}

// New builds a server that will bind to addr.
func New(addr string, dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Server {
	return &Server{addr: addr, dispatcher: dispatcher, logger: logger}
}

// Listen binds the socket. Serve calls it implicitly; tests call it first to
// learn the bound address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the context is cancelled, then waits for
// in-flight connections to drain.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("client connected", zap.String("remote", remote))

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var cmd protocol.Command
		if err := dec.Decode(&cmd); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("decode command", zap.String("remote", remote), zap.Error(err))
			}
			return
		}

		resp := s.dispatcher.Execute(ctx, cmd)

		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("write response", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
}
