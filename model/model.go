// Package model contains core data types for the project.
package model

import (
	"net"
	"time"
)

// CounterRecord maps an NCP counter name to its value.
// Values keep the verbatim numeric text reported by the NCP.
type CounterRecord map[string]string

// Datagram is one inbound UDP packet handled by the echo responder.
type Datagram struct {
	ID         string       // Event ID used to correlate log lines.
	Payload    []byte       // Raw payload, echoed back verbatim.
	Source     *net.UDPAddr // Sender address and port.
	ReceivedAt time.Time    // Receive timestamp.
}
