// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package machine assembles the full network peripheral: the port bus and
// command adapter on the processor side, the message queues between them,
// and the polled network engine behind.
package machine

import (
	"fmt"
	"iter"
	"time"

	"github.com/ezrec/altairnet/bus"
	"github.com/ezrec/altairnet/chat"
	"github.com/ezrec/altairnet/config"
	"github.com/ezrec/altairnet/engine"
	"github.com/ezrec/altairnet/internal"
)

// Version is stamped by the build.
var Version = "devel"

// Machine state. Bus + adapter + queues + engine.
type Machine struct {
	Verbose bool

	Queues  *chat.Queues
	Adapter *chat.Adapter
	Engine  *engine.Engine
	Bus     *bus.Bus

	stop chan struct{}
	idle chan struct{}
}

// New creates a machine wired to real network transports.
func New(c config.Config) (m *Machine, err error) {
	return NewWithDial(c, engine.NewNetTransport)
}

// NewWithDial creates a machine with a caller-supplied transport factory.
func NewWithDial(c config.Config, dial engine.DialFunc) (m *Machine, err error) {
	m = &Machine{
		Verbose: c.Verbose,
		Queues:  chat.NewQueues(),
		Bus:     bus.New(),
	}
	m.Adapter = chat.NewAdapter(m.Queues)
	m.Engine = engine.New(m.Queues, dial)

	m.Engine.Verbose = c.Verbose
	m.Engine.Host = c.Host
	m.Engine.Port = c.Port
	m.Engine.Path = c.Path
	m.Engine.APIKey = c.APIKey

	err = m.Bus.Map(m.Adapter)
	if err != nil {
		return
	}
	err = m.Bus.Map(bus.NewUtilityDevice(Banner()))

	return
}

// Banner returns the machine's version banner.
func Banner() string {
	return fmt.Sprintf("altairnet %v", Version)
}

// Out performs a port write on behalf of the emulated processor.
func (m *Machine) Out(port uint8, data uint8) {
	m.Bus.Out(port, data)
}

// In performs a port read on behalf of the emulated processor.
func (m *Machine) In(port uint8) uint8 {
	return m.Bus.In(port)
}

// Start launches the engine poll loop at the given interval. The loop owns
// the engine until Close; port operations stay on the caller's side of the
// queues and remain safe throughout.
func (m *Machine) Start(interval time.Duration) {
	m.stop = make(chan struct{})
	m.idle = make(chan struct{})

	go func() {
		defer close(m.idle)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Engine.Poll()
			case <-m.stop:
				return
			}
		}
	}()
}

// Close stops the poll loop and waits for it to exit.
func (m *Machine) Close() (err error) {
	if m.stop != nil {
		close(m.stop)
		<-m.idle
		m.stop = nil
	}

	return
}

// Stats yields the machine's diagnostic counters. Only meaningful while
// the poll loop is stopped.
func (m *Machine) Stats() iter.Seq2[string, int] {
	return internal.IterSeq2Concat(
		m.queueStats(),
		m.Engine.Stats(),
	)
}

func (m *Machine) queueStats() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		if !yield("queue.requests", m.Queues.Requests.Len()) {
			return
		}
		if !yield("queue.chunks", m.Queues.Chunks.Len()) {
			return
		}
		yield("queue.responses", m.Queues.Responses.Len())
	}
}
