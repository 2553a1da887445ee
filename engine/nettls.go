package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	// dialTimeout bounds the blocking dial inside the connect goroutine.
	// The engine's own deadlines fire first.
	dialTimeout = 30 * time.Second

	// sendQueueDepth bounds bytes accepted for transmission ahead of the
	// writer goroutine.
	sendQueueDepth = 4
	// recvQueueDepth bounds reads buffered ahead of the engine. Once it
	// fills, the reader goroutine stops reading the socket and the TCP
	// window closes, extending the engine's backpressure to the peer.
	recvQueueDepth = 8
	// recvReadSize is the reader goroutine's per-read buffer.
	recvReadSize = 2048
)

// netTransport adapts the blocking net and crypto/tls facilities to the
// engine's non-blocking Transport contract. Blocking operations run in
// internal goroutines; the engine-facing methods only exchange data with
// them through channels and never block.
type netTransport struct {
	mu sync.Mutex

	host   string
	conn   net.Conn
	tconn  *tls.Conn
	closed bool
	done   chan struct{}

	hsStarted  bool
	hsComplete bool
	hsDone     chan error

	sendCh  chan []byte
	sendErr error

	recvCh    chan []byte
	recvDone  chan error
	recvBuf   []byte
	recvFinal error
}

var _ Transport = (*netTransport)(nil)

var insecureWarning sync.Once

// NewNetTransport creates a Transport backed by a real TCP connection and
// TLS session. Certificate verification is disabled, matching the original
// machine; the connection is open to man-in-the-middle interception.
func NewNetTransport() Transport {
	insecureWarning.Do(func() {
		log.Printf("engine: certificate verification is disabled")
	})

	return &netTransport{
		done:     make(chan struct{}),
		hsDone:   make(chan error, 1),
		sendCh:   make(chan []byte, sendQueueDepth),
		recvCh:   make(chan []byte, recvQueueDepth),
		recvDone: make(chan error, 1),
	}
}

func (t *netTransport) Connect(host string, port int) <-chan ConnEvent {
	t.host = host
	events := make(chan ConnEvent, 2)

	go func() {
		addrs, err := net.DefaultResolver.LookupHost(context.Background(), host)
		if err == nil && len(addrs) == 0 {
			err = &net.DNSError{Err: "no addresses", Name: host}
		}
		if err != nil {
			events <- ConnEvent{Phase: PhaseResolved, Err: err}
			return
		}

		addr := net.JoinHostPort(addrs[0], strconv.Itoa(port))
		events <- ConnEvent{Phase: PhaseResolved, Addr: addr}

		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			events <- ConnEvent{Phase: PhaseConnected, Err: err}
			return
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.mu.Unlock()

		events <- ConnEvent{Phase: PhaseConnected}
	}()

	return events
}

func (t *netTransport) HandshakeStep() (err error) {
	if t.hsComplete {
		return
	}

	if !t.hsStarted {
		t.hsStarted = true
		t.tconn = tls.Client(t.conn, &tls.Config{
			ServerName:         t.host,
			InsecureSkipVerify: true,
		})
		go func() {
			t.hsDone <- t.tconn.Handshake()
		}()
		err = ErrWouldBlock
		return
	}

	select {
	case err = <-t.hsDone:
		if err != nil {
			return
		}
		t.hsComplete = true
		t.startIO()
	default:
		err = ErrWouldBlock
	}

	return
}

// startIO launches the writer and reader goroutines once the handshake has
// completed.
func (t *netTransport) startIO() {
	go func() {
		for {
			select {
			case p := <-t.sendCh:
				if _, err := t.tconn.Write(p); err != nil {
					t.mu.Lock()
					t.sendErr = err
					t.mu.Unlock()
					return
				}
			case <-t.done:
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, recvReadSize)
		for {
			count, err := t.tconn.Read(buf)
			if count > 0 {
				select {
				case t.recvCh <- bytes.Clone(buf[:count]):
				case <-t.done:
					return
				}
			}
			if err != nil {
				t.recvDone <- err
				return
			}
		}
	}()
}

func (t *netTransport) Send(p []byte) (count int, err error) {
	t.mu.Lock()
	err = t.sendErr
	closed := t.closed
	t.mu.Unlock()
	if err != nil {
		return
	}
	if closed {
		err = net.ErrClosed
		return
	}

	select {
	case t.sendCh <- bytes.Clone(p):
		count = len(p)
	default:
		err = ErrWouldBlock
	}

	return
}

func (t *netTransport) Recv(p []byte) (count int, err error) {
	if t.recvFinal != nil {
		err = t.recvFinal
		return
	}

	if len(t.recvBuf) == 0 {
		select {
		case t.recvBuf = <-t.recvCh:
		default:
			// The reader delivers all data before reporting its
			// final error, so an empty channel makes this safe.
			select {
			case err = <-t.recvDone:
				t.recvFinal = err
			default:
				err = ErrWouldBlock
			}
			return
		}
	}

	count = copy(p, t.recvBuf)
	t.recvBuf = t.recvBuf[count:]

	return
}

func (t *netTransport) Close() (err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conn := t.conn
	tconn := t.tconn
	t.mu.Unlock()

	close(t.done)
	if tconn != nil {
		err = tconn.Close()
	} else if conn != nil {
		err = conn.Close()
	}

	return
}
