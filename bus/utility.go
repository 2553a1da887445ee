package bus

import (
	"math/rand/v2"
)

const (
	// PortRandomWord stages a 16-bit random value, low byte first.
	PortRandomWord = 45
	// PortVersion stages the machine's version banner.
	PortVersion = 70
)

// UtilityDevice serves the miscellaneous machine services: random numbers
// and the version banner.
type UtilityDevice struct {
	// Banner is staged, newline terminated, on a PortVersion write.
	Banner string
}

var _ Device = (*UtilityDevice)(nil)

func NewUtilityDevice(banner string) *UtilityDevice {
	return &UtilityDevice{Banner: banner}
}

func (d *UtilityDevice) Ports() []uint8 {
	return []uint8{PortRandomWord, PortVersion}
}

func (d *UtilityDevice) Out(port uint8, data uint8) (staged []byte) {
	switch port {
	case PortRandomWord:
		value := uint16(rand.Uint32())
		staged = []byte{byte(value), byte(value >> 8)}
	case PortVersion:
		staged = []byte(d.Banner + "\n")
	}

	return
}

func (d *UtilityDevice) In(port uint8) uint8 {
	return 0
}
