// Package engine drives one network exchange at a time: name resolution,
// connect, TLS handshake, header send, streamed body upload, and the
// decrypt/extract/forward of the streamed response. It is advanced by a
// cooperative poll loop and never blocks on I/O.
package engine

// ConnPhase tags a connection progress event.
type ConnPhase uint8

const (
	// PhaseResolved reports completed name resolution.
	PhaseResolved ConnPhase = iota
	// PhaseConnected reports an established connection.
	PhaseConnected
)

// ConnEvent is a connection progress signal. A non-nil Err ends the
// connection attempt.
type ConnEvent struct {
	Phase ConnPhase
	Addr  string
	Err   error
}

// Transport is the reliable-transport and TLS facility the engine drives.
// Every method returns without blocking; operations that cannot progress
// report ErrWouldBlock and are retried on a later poll.
type Transport interface {
	// Connect begins asynchronous name resolution followed by a single
	// connection attempt to host:port. Progress is reported on the
	// returned channel: PhaseResolved first, then PhaseConnected.
	Connect(host string, port int) <-chan ConnEvent

	// HandshakeStep advances the TLS handshake. It returns nil once the
	// handshake has completed, ErrWouldBlock while in progress, and any
	// other error on hard failure.
	HandshakeStep() error

	// Send writes encrypted application bytes. It returns the number of
	// bytes accepted; zero with ErrWouldBlock when no byte could be
	// accepted, any other error on hard failure.
	Send(p []byte) (int, error)

	// Recv reads decrypted application bytes into p. It returns
	// ErrWouldBlock when nothing is available, io.EOF on a clean
	// peer-initiated close, and any other error on hard failure.
	Recv(p []byte) (int, error)

	// Close releases the connection and all handshake resources.
	Close() error
}

// DialFunc creates a fresh Transport for one request.
type DialFunc func() Transport
