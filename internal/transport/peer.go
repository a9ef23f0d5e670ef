package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"vimsicles/internal/config"
)

// ConnectionFailureError reports a failure to establish the connection
type ConnectionFailureError struct {
	Role    string
	Addr    string
	Message string
	Err     error
}

func (e *ConnectionFailureError) Error() string {
	return fmt.Sprintf("connection failed for %s (%s): %s: %v", e.Role, e.Addr, e.Message, e.Err)
}

func (e *ConnectionFailureError) Unwrap() error {
	return e.Err
}

// PeerService establishes the single connection a session runs over
type PeerService struct {
	config *config.Config
	logger *zap.SugaredLogger
}

// NewPeerService creates a new peer service with the given configuration
func NewPeerService(cfg *config.Config, logger *zap.SugaredLogger) *PeerService {
	return &PeerService{
		config: cfg,
		logger: logger,
	}
}

// Dial connects to the receiver at host. port 0 uses the configured port.
func (p *PeerService) Dial(ctx context.Context, host string, port int) (net.Conn, error) {
	addr := p.address(host, port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionFailureError{Role: "sender", Addr: addr, Message: "dial", Err: err}
	}

	p.logger.Infow("Connected to receiver", "addr", conn.RemoteAddr().String())
	return conn, nil
}

// ListenOnce listens on bind:port, accepts exactly one connection and
// closes the listener. Cancelling ctx aborts the wait.
func (p *PeerService) ListenOnce(ctx context.Context, bind string, port int) (net.Conn, error) {
	addr := p.address(bind, port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionFailureError{Role: "receiver", Addr: addr, Message: "listen", Err: err}
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	p.logger.Infow("Waiting for connection", "addr", ln.Addr().String())

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &ConnectionFailureError{Role: "receiver", Addr: addr, Message: "accept", Err: err}
	}

	p.logger.Infow("Accepted connection", "peer", conn.RemoteAddr().String())
	return conn, nil
}

func (p *PeerService) address(host string, port int) string {
	if port == 0 {
		port = p.config.Network.Port
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
