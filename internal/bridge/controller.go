// Package bridge runs the LDAP endpoint: a single controller owns the
// listener, the live configuration, and connection accounting, and supports
// hot reconfiguration without a connectivity gap.
package bridge

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nmcclain/ldap"

	"dirbridge/internal/directory"
	"dirbridge/internal/domain"
	"dirbridge/internal/service"
)

// State names the controller's lifecycle phase.
type State string

const (
	StateStopped       State = "stopped"
	StateStarting      State = "starting"
	StateRunning       State = "running"
	StateStopping      State = "stopping"
	StateReconfiguring State = "reconfiguring"
)

const drainTimeout = 5 * time.Second

// Controller owns the bridge lifecycle. All mutations (Start, Stop,
// UpdateConfig) are serialized; Status may be read concurrently.
type Controller struct {
	log    *slog.Logger
	users  *service.UserService
	groups *service.GroupService

	counter connCounter

	mu        sync.Mutex
	state     State
	cfg       domain.BridgeConfig
	lastError string

	listener *countingListener
	server   *ldap.Server
	handlers *swappableHandler
	done     chan struct{}
}

// swappableHandler lets a reconfigure install a new session handler without
// touching the server's route tables mid-session.
type swappableHandler struct {
	h atomic.Pointer[sessionHandler]
}

func (s *swappableHandler) Bind(bindDN, bindSimplePw string, conn net.Conn) (ldap.LDAPResultCode, error) {
	return s.h.Load().Bind(bindDN, bindSimplePw, conn)
}

func (s *swappableHandler) Search(boundDN string, req ldap.SearchRequest, conn net.Conn) (ldap.ServerSearchResult, error) {
	return s.h.Load().Search(boundDN, req, conn)
}

func (s *swappableHandler) Close(boundDN string, conn net.Conn) error {
	return s.h.Load().Close(boundDN, conn)
}

func NewController(log *slog.Logger, users *service.UserService, groups *service.GroupService, cfg domain.BridgeConfig) *Controller {
	return &Controller{
		log:    log,
		users:  users,
		groups: groups,
		state:  StateStopped,
		cfg:    cfg,
	}
}

// Start binds the configured port and begins serving. A port already in
// use fails with UnavailableError and leaves the controller Stopped.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStopped {
		return domain.ErrValidation("bridge is %s, not stopped", c.state)
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.state = StateStarting
	ln, server, sw, done, err := c.launch(c.cfg)
	if err != nil {
		c.state = StateStopped
		c.lastError = err.Error()
		return err
	}

	c.listener = ln
	c.server = server
	c.handlers = sw
	c.done = done
	c.state = StateRunning
	c.lastError = ""
	c.log.Info("ldap bridge started", "port", c.cfg.Port, "mode", c.cfg.Mode, "base_dn", c.cfg.BaseDN)
	return nil
}

// Stop closes the listener and waits for in-flight connections to drain
// before reporting Stopped. Stopping an already stopped bridge is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return nil
	}
	c.state = StateStopping

	c.shutdownLocked()

	if !c.counter.drain(drainTimeout) {
		c.log.Warn("ldap bridge stopped with connections still open", "connections", c.counter.count())
	}
	c.state = StateStopped
	c.log.Info("ldap bridge stopped")
	return nil
}

// UpdateConfig applies a new configuration. Only one update may be in
// flight; a concurrent caller gets BusyError. While running, the new
// listener is bound before the old one is torn down, so a failed bind
// leaves the previous configuration fully in effect.
func (c *Controller) UpdateConfig(cfg domain.BridgeConfig) error {
	if !c.mu.TryLock() {
		return domain.ErrBusy("a configuration update is already in progress")
	}
	defer c.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.state != StateRunning {
		c.cfg = cfg
		return nil
	}

	c.state = StateReconfiguring
	defer func() { c.state = StateRunning }()

	if cfg.Port == c.cfg.Port {
		// Same port: rebinding would collide with ourselves. Swap the
		// session handler under the existing listener.
		c.handlers.h.Store(c.handler(cfg))
		c.cfg = cfg
		c.log.Info("ldap bridge reconfigured in place", "mode", cfg.Mode, "base_dn", cfg.BaseDN)
		return nil
	}

	ln, server, sw, done, err := c.launch(cfg)
	if err != nil {
		return domain.ErrApply("new configuration could not be applied: %v", err)
	}

	oldListener, oldServer, oldDone := c.listener, c.server, c.done

	c.listener = ln
	c.server = server
	c.handlers = sw
	c.done = done
	c.cfg = cfg

	// New listener is live; retire the old one. Its accepted connections
	// drain on their own and stay counted until they close.
	oldListener.Close()
	oldServer.Quit <- true
	<-oldDone

	c.log.Info("ldap bridge reconfigured", "port", cfg.Port, "mode", cfg.Mode, "base_dn", cfg.BaseDN)
	return nil
}

// Config returns the currently effective configuration.
func (c *Controller) Config() domain.BridgeConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Status reports the live state: running flag, effective port, open
// connection count, and the last fatal listener error if any.
func (c *Controller) Status() domain.BridgeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.BridgeStatus{
		State:       string(c.state),
		Running:     c.state == StateRunning || c.state == StateReconfiguring,
		Port:        c.cfg.Port,
		Connections: int(c.counter.count()),
		LastError:   c.lastError,
	}
}

// launch binds a listener for cfg and starts an LDAP server on it. The
// returned channel closes when the server loop exits.
func (c *Controller) launch(cfg domain.BridgeConfig) (*countingListener, *ldap.Server, *swappableHandler, chan struct{}, error) {
	raw, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, nil, nil, nil, domain.ErrUnavailable("port %d unavailable: %v", cfg.Port, err)
	}

	ln := newCountingListener(raw, &c.counter, c.acceptFailed)

	sw := &swappableHandler{}
	sw.h.Store(c.handler(cfg))
	server := ldap.NewServer()
	server.BindFunc("", sw)
	server.SearchFunc("", sw)
	server.CloseFunc("", sw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil {
			c.log.Error("ldap server loop exited", "err", err)
		}
	}()

	return ln, server, sw, done, nil
}

func (c *Controller) handler(cfg domain.BridgeConfig) *sessionHandler {
	mapper := directory.NewMapper(cfg.BaseDN, cfg.Mode)
	return newSessionHandler(c.log, c.users, c.groups, mapper)
}

// acceptFailed records an unexpected socket error and moves the bridge to
// Stopped; deliberate listener closes never reach here.
func (c *Controller) acceptFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return
	}
	c.log.Error("ldap bridge accept failed", "err", err)
	c.lastError = err.Error()
	c.shutdownLocked()
	c.state = StateStopped
}

// shutdownLocked stops the server loop and listener. Caller holds mu.
func (c *Controller) shutdownLocked() {
	if c.server == nil {
		return
	}
	// Quit makes the serve loop close the listener and return; closing
	// the listener first marks the close as deliberate for Accept.
	c.listener.Close()
	c.server.Quit <- true
	<-c.done
	c.server = nil
	c.listener = nil
	c.done = nil
}
