package chat

// Port assignments for the chat device. Writes and reads on the same port
// number have distinct meanings, matching the original machine's layout.
const (
	// PortResetRequest clears request state on write; read triggers the
	// request and returns 1 on acceptance.
	PortResetRequest = 120
	// PortAppendByte streams one body byte on write; read returns the low
	// byte of the declared content length.
	PortAppendByte = 121
	// PortResetResponse clears response state on write; read returns the
	// high byte of the declared content length.
	PortResetResponse = 122
	// PortStatus reads the device status.
	PortStatus = 123
	// PortReadByte reads the next staged response byte.
	PortReadByte = 124
	// PortComplete reads 1 once a terminal status has been recorded.
	PortComplete = 125
	// PortLengthLow writes the low byte of the content length.
	PortLengthLow = 126
	// PortLengthHigh writes the high byte of the content length.
	PortLengthHigh = 127
)

// Ports lists every port number the device decodes.
func (a *Adapter) Ports() []uint8 {
	return []uint8{
		PortResetRequest, PortAppendByte, PortResetResponse, PortStatus,
		PortReadByte, PortComplete, PortLengthLow, PortLengthHigh,
	}
}

// Out handles a port write from the emulated processor.
func (a *Adapter) Out(port uint8, data uint8) (staged []byte) {
	switch port {
	case PortResetRequest:
		a.ResetRequest()
	case PortAppendByte:
		a.AppendBodyByte(data)
	case PortResetResponse:
		a.ResetResponse()
	case PortLengthLow:
		a.SetLengthLow(data)
	case PortLengthHigh:
		a.SetLengthHigh(data)
	}

	return
}

// In handles a port read from the emulated processor. Out-of-sequence
// reads are tolerated and simply return zero values.
func (a *Adapter) In(port uint8) (data uint8) {
	switch port {
	case PortResetRequest:
		if a.Trigger() {
			data = 1
		}
	case PortAppendByte:
		data = uint8(a.contentLength)
	case PortResetResponse:
		data = uint8(a.contentLength >> 8)
	case PortStatus:
		data = uint8(a.PollStatus())
	case PortReadByte:
		data = a.ReadByte()
	case PortComplete:
		if a.IsComplete() {
			data = 1
		}
	}

	return
}
