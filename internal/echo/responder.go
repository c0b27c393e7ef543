// Package echo implements the UDP echo responder: every datagram received,
// usually sent to a multicast group, is returned verbatim to its sender
// over unicast.
package echo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/and161185/ncp-diag/internal/utils"
	"github.com/and161185/ncp-diag/model"
)

// maxDatagramSize is the largest UDP payload.
const maxDatagramSize = 65535

// readErrorBackoff paces the read loop after a failed read.
const readErrorBackoff = 50 * time.Millisecond

// ErrClosed is returned by Serve after Close was called.
var ErrClosed = errors.New("echo responder closed")

// State is the lifecycle state of a Responder.
type State int32

const (
	StateBound     State = iota // socket bound, not yet reading
	StateListening              // read loop running
	StateClosed                 // socket closed
)

func (s State) String() string {
	switch s {
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Observer is notified about datagram traffic.
type Observer interface {
	Received(bytes int)
	Replied(bytes int)
	Failed()
}

type nopObserver struct{}

func (nopObserver) Received(int) {}
func (nopObserver) Replied(int)  {}
func (nopObserver) Failed()      {}

// Config describes the socket the responder binds.
type Config struct {
	Addr      string // host:port, "[::]:19085" for all IPv6 addresses
	Group     string // optional multicast group to join
	Interface string // interface for the group join, empty for the system default
}

// Option customizes a Responder.
type Option func(*Responder)

// WithObserver installs a traffic observer.
func WithObserver(o Observer) Option {
	return func(r *Responder) {
		if o != nil {
			r.observer = o
		}
	}
}

// udpConn is the subset of *net.UDPConn the responder uses.
type udpConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	LocalAddr() net.Addr
	SetReadDeadline(t time.Time) error
	Close() error
}

// Responder echoes UDP datagrams back to their senders.
type Responder struct {
	conn     udpConn
	logger   *zap.SugaredLogger
	observer Observer
	newID    func() string

	state  atomic.Int32
	closed atomic.Bool
	wg     sync.WaitGroup
}

// Listen binds the UDP socket, joins the multicast group when configured
// and logs the bound address. Any error here is a startup failure.
func Listen(cfg Config, logger *zap.SugaredLogger, opts ...Option) (*Responder, error) {
	network, err := networkFor(cfg.Addr)
	if err != nil {
		return nil, err
	}

	laddr, err := net.ResolveUDPAddr(network, cfg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", cfg.Addr)
	}

	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "bind %s", cfg.Addr)
	}

	if cfg.Group != "" {
		if err := joinGroup(conn, cfg.Group, cfg.Interface); err != nil {
			_ = conn.Close()
			return nil, err
		}
		logger.Infow("joined multicast group", "group", cfg.Group, "interface", cfg.Interface)
	}

	r := newResponder(conn, logger, opts...)

	la := r.LocalAddr()
	logger.Infow("echo responder bound", "address", hostOf(la), "port", la.Port)

	return r, nil
}

func newResponder(conn udpConn, logger *zap.SugaredLogger, opts ...Option) *Responder {
	r := &Responder{
		conn:     conn,
		logger:   logger,
		observer: nopObserver{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state.Store(int32(StateBound))
	return r
}

// LocalAddr returns the bound socket address.
func (r *Responder) LocalAddr() *net.UDPAddr {
	if a, ok := r.conn.LocalAddr().(*net.UDPAddr); ok {
		return a
	}
	return &net.UDPAddr{}
}

// State returns the current lifecycle state.
func (r *Responder) State() State {
	return State(r.state.Load())
}

// Serve reads datagrams until ctx is cancelled or Close is called and
// echoes each one from its own goroutine. It returns nil on context
// cancellation and ErrClosed after Close. Replies still in flight are
// awaited before Serve returns.
func (r *Responder) Serve(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateBound), int32(StateListening)) {
		return ErrClosed
	}
	r.logger.Infow("echo responder listening", "address", r.LocalAddr().String())

	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer stop()

	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if r.closed.Load() || errors.Is(err, net.ErrClosed) {
				r.state.Store(int32(StateClosed))
				r.wg.Wait()
				_ = r.conn.Close()
				if ctx.Err() != nil {
					return nil
				}
				return ErrClosed
			}
			r.logger.Warnw("read datagram failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(readErrorBackoff):
			}
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		d := model.Datagram{
			ID:         r.newID(),
			Payload:    payload,
			Source:     src,
			ReceivedAt: time.Now(),
		}
		r.observer.Received(n)
		r.logger.Infow("datagram received",
			"event_id", d.ID,
			"address", hostOf(src),
			"port", src.Port,
			"payload", utils.FormatPayload(payload),
		)

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.reply(d)
		}()
	}
}

// reply sends the payload back to its source. A failure is logged and
// affects only this datagram.
func (r *Responder) reply(d model.Datagram) {
	n, err := r.conn.WriteToUDP(d.Payload, d.Source)
	if err != nil {
		r.observer.Failed()
		r.logger.Errorw("echo reply failed",
			"event_id", d.ID,
			"address", hostOf(d.Source),
			"port", d.Source.Port,
			"error", err,
		)
		return
	}
	r.observer.Replied(n)
	r.logger.Debugw("echo reply sent",
		"event_id", d.ID,
		"address", hostOf(d.Source),
		"port", d.Source.Port,
		"bytes", n,
		"latency", time.Since(d.ReceivedAt),
	)
}

// Close stops the responder. Without a running Serve the socket is closed
// right away. Otherwise only reading stops: Serve sends the replies still
// in flight, then closes the socket and returns.
func (r *Responder) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if r.state.CompareAndSwap(int32(StateBound), int32(StateClosed)) {
		r.logger.Infow("echo responder closed before serving")
		return r.conn.Close()
	}
	return r.conn.SetReadDeadline(time.Now())
}

// networkFor picks udp6 for IPv6 literals so "[::]" is a real IPv6 socket.
func networkFor(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", errors.Wrapf(err, "invalid listen address %q", addr)
	}
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		return "udp6", nil
	}
	return "udp", nil
}

func hostOf(a *net.UDPAddr) string {
	if a == nil {
		return ""
	}
	if a.Zone != "" {
		return a.IP.String() + "%" + a.Zone
	}
	return a.IP.String()
}
