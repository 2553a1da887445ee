// Package bus decodes the emulated machine's I/O port space and routes
// each port to the device that claims it. Devices may stage a multi-byte
// reply, which the processor drains one byte at a time from a dedicated
// read port.
package bus

const (
	// ReadBufferPort drains the staged reply of the most recent write.
	ReadBufferPort = 200

	// StagingSize bounds one staged reply.
	StagingSize = 128
)

// Device handles a set of I/O ports. Out may return a reply to stage for
// sequential reads on ReadBufferPort.
type Device interface {
	// Ports lists every port number the device decodes.
	Ports() []uint8
	// Out handles a write to one of the device's ports.
	Out(port uint8, data uint8) (staged []byte)
	// In handles a read from one of the device's ports.
	In(port uint8) uint8
}

// Bus is the port decoder. It is not safe for concurrent use; the
// emulated processor is the only caller.
type Bus struct {
	devices map[uint8]Device

	staged [StagingSize]byte
	length int
	count  int
}

// New creates an empty bus. Reads from unmapped ports return zero and
// writes to them are discarded.
func New() *Bus {
	return &Bus{devices: map[uint8]Device{}}
}

// Map routes every port the device claims to it. Mapping fails without
// side effects if any claimed port is already taken or reserved.
func (b *Bus) Map(dev Device) (err error) {
	for _, port := range dev.Ports() {
		if port == ReadBufferPort {
			err = ErrPortReserved
			return
		}
		if _, ok := b.devices[port]; ok {
			err = ErrPortInUse
			return
		}
	}

	for _, port := range dev.Ports() {
		b.devices[port] = dev
	}

	return
}

// Out dispatches a port write. Every write discards the previous staged
// reply, mapped port or not, so a stale reply can never be read after an
// unrelated operation.
func (b *Bus) Out(port uint8, data uint8) {
	b.length = 0
	b.count = 0

	dev, ok := b.devices[port]
	if !ok {
		return
	}

	b.length = copy(b.staged[:], dev.Out(port, data))
}

// In dispatches a port read. ReadBufferPort yields the staged reply one
// byte per read, then zeroes.
func (b *Bus) In(port uint8) uint8 {
	if port == ReadBufferPort {
		if b.count < b.length {
			value := b.staged[b.count]
			b.count++
			return value
		}
		return 0
	}

	dev, ok := b.devices[port]
	if !ok {
		return 0
	}

	return dev.In(port)
}
