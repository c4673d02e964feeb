// Package server serves the engine over TCP using RESP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flashdb/flashkv/internal/engine"
	"github.com/flashdb/flashkv/internal/protocol"
)

// Connection-level error replies.
const (
	errNoAuth      = "NOAUTH Authentication required."
	errNoPassword  = "ERR Client sent AUTH, but no password is set"
	errWrongPass   = "WRONGPASS invalid username-password pair or user is disabled."
	errInvalidDB   = "ERR DB index is out of range"
	errMaxClients  = "ERR max number of clients reached"
	errProtocolFmt = "ERR Protocol error: %s"
)

// Config holds server configuration.
type Config struct {
	Password    string
	MaxClients  int
	ReadTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{MaxClients: 10000}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// clientConn is the per-connection state.
type clientConn struct {
	id            int64
	uid           uuid.UUID
	conn          net.Conn
	addr          string
	authenticated bool
	createdAt     time.Time
	tx            *engine.Tx

	// Read by CLIENT LIST from other connections.
	name        atomic.Value
	lastCommand atomic.Int64
	cmdCount    atomic.Int64
}

// Server accepts RESP connections and hands commands to the engine.
type Server struct {
	addr   string
	engine *engine.Engine
	config Config
	logger *slog.Logger

	mu         sync.RWMutex
	listener   net.Listener
	ready      chan struct{}
	closed     bool
	clients    map[int64]*clientConn
	nextConnID int64
	wg         sync.WaitGroup

	totalConns atomic.Int64
	rejected   atomic.Int64
}

// New creates a Server bound to addr once started.
func New(addr string, e *engine.Engine, cfg Config, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		engine:  e,
		config:  cfg,
		logger:  e.Logger(),
		ready:   make(chan struct{}),
		clients: make(map[int64]*clientConn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens and serves until ctx is cancelled or Close is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("listening", "addr", ln.Addr().String(), "auth", s.config.Password != "")

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		client, ok := s.register(conn)
		if !ok {
			s.rejected.Add(1)
			s.logger.Warn("max clients reached, rejecting connection", "remote", conn.RemoteAddr().String())
			w := protocol.NewWriter(conn)
			w.WriteError(errMaxClients)
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func(c *clientConn) {
			defer s.wg.Done()
			defer s.unregister(c)
			s.handleConnection(ctx, c)
		}(client)
	}
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Close stops accepting, closes open connections and waits for their
// goroutines to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	s.logger.Info("server stopped", "connections_served", s.totalConns.Load(), "rejected", s.rejected.Load())
	return err
}

// Clients returns the number of open connections.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) register(conn net.Conn) (*clientConn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients) {
		return nil, false
	}

	uid, err := uuid.NewV7()
	if err != nil {
		uid = uuid.New()
	}
	s.nextConnID++
	now := time.Now()
	c := &clientConn{
		id:            s.nextConnID,
		uid:           uid,
		conn:          conn,
		addr:          conn.RemoteAddr().String(),
		authenticated: s.config.Password == "",
		createdAt:     now,
		tx:            &engine.Tx{},
	}
	c.name.Store("")
	c.lastCommand.Store(now.UnixNano())
	s.clients[c.id] = c
	s.totalConns.Add(1)
	return c, true
}

func (s *Server) unregister(c *clientConn) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
}

func (s *Server) handleConnection(ctx context.Context, client *clientConn) {
	defer client.conn.Close()

	log := s.logger.With("conn", client.uid.String(), "remote", client.addr)
	log.Debug("connection opened")
	defer func() {
		log.Debug("connection closed", "commands", client.cmdCount.Load())
	}()

	r := protocol.NewReader(client.conn)
	w := protocol.NewWriter(client.conn)
	w.SetAutoFlush(false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.config.ReadTimeout > 0 {
			client.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		words, err := r.ReadCommand()
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrEmptyCommand):
				continue
			case errors.Is(err, protocol.ErrInvalidProtocol):
				w.WriteError(fmt.Sprintf(errProtocolFmt, strings.TrimPrefix(err.Error(), "protocol: ")))
				w.Flush()
				log.Debug("protocol error", "error", err)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			default:
				var ne net.Error
				if !errors.As(err, &ne) || !ne.Timeout() {
					log.Debug("read failed", "error", err)
				}
			}
			return
		}

		client.lastCommand.Store(time.Now().UnixNano())
		client.cmdCount.Add(1)

		quit := s.dispatch(w, client, words)

		// Replies to pipelined requests go out in one write.
		if quit || r.Buffered() == 0 {
			if err := w.Flush(); err != nil {
				log.Debug("write failed", "error", err)
				return
			}
		}
		if quit {
			return
		}
	}
}

// dispatch runs one request. It reports whether the connection should close.
func (s *Server) dispatch(w *protocol.Writer, client *clientConn, words [][]byte) bool {
	name := strings.ToLower(string(words[0]))
	args := words[1:]

	if !client.authenticated && name != "auth" && name != "ping" && name != "quit" {
		w.WriteError(errNoAuth)
		return false
	}

	// Connection state commands do not queue; EXEC still runs what was
	// queued before them.
	if client.tx.Queuing() {
		switch name {
		case "auth", "select", "client":
			w.WriteError(engine.ErrNotAllowedInTx.Msg)
			return false
		}
	}

	switch name {
	case "quit":
		w.WriteSimpleString("OK")
		return true
	case "auth":
		s.cmdAuth(w, client, args)
	case "select":
		s.cmdSelect(w, args)
	case "client":
		s.cmdClient(w, client, args)
	default:
		writeReply(w, s.engine.Handle(client.tx, name, args))
	}
	return false
}

func (s *Server) cmdAuth(w *protocol.Writer, client *clientConn, args [][]byte) {
	if len(args) != 1 {
		w.WriteError(engine.ErrInvalidArgs.Msg)
		return
	}
	if s.config.Password == "" {
		w.WriteError(errNoPassword)
		return
	}
	if string(args[0]) != s.config.Password {
		w.WriteError(errWrongPass)
		return
	}
	client.authenticated = true
	w.WriteSimpleString("OK")
}

// Only database 0 exists.
func (s *Server) cmdSelect(w *protocol.Writer, args [][]byte) {
	if len(args) != 1 {
		w.WriteError(engine.ErrInvalidArgs.Msg)
		return
	}
	db, err := strconv.Atoi(string(args[0]))
	if err != nil {
		w.WriteError(engine.ErrNotInteger.Msg)
		return
	}
	if db != 0 {
		w.WriteError(errInvalidDB)
		return
	}
	w.WriteSimpleString("OK")
}

func (s *Server) cmdClient(w *protocol.Writer, client *clientConn, args [][]byte) {
	if len(args) == 0 {
		w.WriteError(engine.ErrInvalidArgs.Msg)
		return
	}

	switch strings.ToLower(string(args[0])) {
	case "id":
		w.WriteInteger(client.id)
	case "getname":
		name := client.name.Load().(string)
		if name == "" {
			w.WriteNull()
			return
		}
		w.WriteBulkString([]byte(name))
	case "setname":
		if len(args) != 2 || strings.ContainsAny(string(args[1]), " \n") {
			w.WriteError(engine.ErrInvalidArgs.Msg)
			return
		}
		client.name.Store(string(args[1]))
		w.WriteSimpleString("OK")
	case "info":
		w.WriteBulkString([]byte(client.describe()))
	case "list":
		s.mu.RLock()
		var b strings.Builder
		for _, c := range s.clients {
			b.WriteString(c.describe())
			b.WriteByte('\n')
		}
		s.mu.RUnlock()
		w.WriteBulkString([]byte(b.String()))
	default:
		w.WriteError(engine.ErrInvalidArgs.Msg)
	}
}

func (c *clientConn) describe() string {
	idle := time.Since(time.Unix(0, c.lastCommand.Load()))
	return fmt.Sprintf("id=%d uid=%s addr=%s name=%s age=%d idle=%d cmd=%d",
		c.id, c.uid, c.addr, c.name.Load().(string),
		int64(time.Since(c.createdAt).Seconds()),
		int64(idle.Seconds()),
		c.cmdCount.Load())
}

// writeReply encodes an engine reply. Errors are written as they are; the
// message already carries its code.
func writeReply(w *protocol.Writer, r engine.Reply) {
	switch r.Kind {
	case engine.ReplyNil:
		w.WriteNull()
	case engine.ReplyInt:
		w.WriteInteger(r.Int)
	case engine.ReplyBulk:
		w.WriteBulkString(r.Str)
	case engine.ReplyStatus:
		w.WriteSimpleString(string(r.Str))
	case engine.ReplyError:
		w.WriteError(r.Err.Msg)
	case engine.ReplyArray:
		w.WriteArrayHeader(len(r.Array))
		for _, item := range r.Array {
			writeReply(w, item)
		}
	}
}
