package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	ports []uint8
	reply []byte

	outs map[uint8][]uint8
	ins  map[uint8]uint8
}

func newStubDevice(ports ...uint8) *stubDevice {
	return &stubDevice{
		ports: ports,
		outs:  map[uint8][]uint8{},
		ins:   map[uint8]uint8{},
	}
}

func (d *stubDevice) Ports() []uint8 { return d.ports }

func (d *stubDevice) Out(port uint8, data uint8) []byte {
	d.outs[port] = append(d.outs[port], data)
	return d.reply
}

func (d *stubDevice) In(port uint8) uint8 { return d.ins[port] }

func TestBus_Dispatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	b := New()
	dev := newStubDevice(10, 11)
	dev.ins[11] = 0x5a
	require.NoError(b.Map(dev))

	b.Out(10, 0x42)
	assert.Equal([]uint8{0x42}, dev.outs[10])
	assert.Equal(uint8(0x5a), b.In(11))

	// Unmapped ports read zero and swallow writes.
	assert.Equal(uint8(0), b.In(99))
	b.Out(99, 0xff)
}

func TestBus_MapConflicts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	b := New()
	require.NoError(b.Map(newStubDevice(10, 11)))

	assert.ErrorIs(b.Map(newStubDevice(11, 12)), ErrPortInUse)
	assert.ErrorIs(b.Map(newStubDevice(ReadBufferPort)), ErrPortReserved)

	// The failed mapping claimed nothing.
	assert.Equal(uint8(0), b.In(12))
}

func TestBus_StagedReply(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	b := New()
	dev := newStubDevice(10)
	dev.reply = []byte("ok\n")
	require.NoError(b.Map(dev))

	b.Out(10, 0)
	assert.Equal(uint8('o'), b.In(ReadBufferPort))
	assert.Equal(uint8('k'), b.In(ReadBufferPort))
	assert.Equal(uint8('\n'), b.In(ReadBufferPort))

	// Exhausted replies read as zeroes.
	assert.Equal(uint8(0), b.In(ReadBufferPort))
	assert.Equal(uint8(0), b.In(ReadBufferPort))
}

func TestBus_WriteDiscardsStagedReply(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	b := New()
	dev := newStubDevice(10)
	dev.reply = []byte("stale")
	require.NoError(b.Map(dev))

	b.Out(10, 0)
	assert.Equal(uint8('s'), b.In(ReadBufferPort))

	// Any write resets staging, even to an unmapped port.
	b.Out(99, 0)
	assert.Equal(uint8(0), b.In(ReadBufferPort))
}

func TestBus_OversizeReplyTruncated(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	b := New()
	dev := newStubDevice(10)
	dev.reply = make([]byte, StagingSize+40)
	for i := range dev.reply {
		dev.reply[i] = byte(i)
	}
	require.NoError(b.Map(dev))

	b.Out(10, 0)
	for i := range StagingSize {
		assert.Equal(uint8(i), b.In(ReadBufferPort))
	}
	assert.Equal(uint8(0), b.In(ReadBufferPort))
}

func TestUtilityDevice(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	b := New()
	require.NoError(b.Map(NewUtilityDevice("altairnet 1 (test)")))

	b.Out(PortVersion, 0)
	var banner []byte
	for range StagingSize {
		value := b.In(ReadBufferPort)
		if value == 0 {
			break
		}
		banner = append(banner, value)
	}
	assert.Equal("altairnet 1 (test)\n", string(banner))

	// The random word is two bytes, staged low byte first.
	b.Out(PortRandomWord, 0)
	b.In(ReadBufferPort)
	b.In(ReadBufferPort)
	assert.Equal(uint8(0), b.In(ReadBufferPort))
}
