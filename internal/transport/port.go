// Package transport reads decoded pen samples from the MCU serial link.
// Framing is line-oriented: the firmware emits one comma-separated sample
// per line at the shared sampling rate. Lines that fail to decode are
// counted and logged, never fatal: transient serial garbage must not stop
// acquisition.
package transport

import (
	"bufio"
	"context"
	"io"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/penovate/penstream/internal/monitoring"
	"github.com/penovate/penstream/internal/pen"
)

// PortInterface is the acquisition side of the pipeline: a stream of decoded
// samples produced by Monitor.
type PortInterface interface {
	// Samples returns the channel Monitor delivers decoded samples on.
	Samples() <-chan pen.Sample
	// Monitor reads and decodes lines until the context is cancelled or
	// the underlying reader fails.
	Monitor(ctx context.Context) error
	// BadLines reports how many undecodable lines were skipped.
	BadLines() uint64
	// Close closes the underlying port.
	Close() error
}

// SerialPort reads sample lines from a real serial device.
type SerialPort struct {
	port     serial.Port
	samples  chan pen.Sample
	badLines atomic.Uint64
}

// OpenSerial opens the pen serial link at the given device path, 8N1.
func OpenSerial(portName string, baudRate int) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	return &SerialPort{port: port, samples: make(chan pen.Sample)}, nil
}

// Samples returns the decoded sample stream.
func (p *SerialPort) Samples() <-chan pen.Sample { return p.samples }

// BadLines reports how many undecodable lines were skipped.
func (p *SerialPort) BadLines() uint64 { return p.badLines.Load() }

// Close closes the serial port.
func (p *SerialPort) Close() error { return p.port.Close() }

// Monitor reads lines from the serial port, decodes them, and delivers
// samples until the context is cancelled.
func (p *SerialPort) Monitor(ctx context.Context) error {
	defer close(p.samples)
	return monitorLines(ctx, p.port, p.samples, &p.badLines)
}

// MockPort replays sample lines from an in-memory reader, used by dev mode
// and tests in place of hardware.
type MockPort struct {
	Data     io.Reader
	samples  chan pen.Sample
	badLines atomic.Uint64
}

// NewMockPort wraps a reader of newline-separated sample lines.
func NewMockPort(data io.Reader) *MockPort {
	return &MockPort{Data: data, samples: make(chan pen.Sample)}
}

// Samples returns the decoded sample stream.
func (m *MockPort) Samples() <-chan pen.Sample { return m.samples }

// BadLines reports how many undecodable lines were skipped.
func (m *MockPort) BadLines() uint64 { return m.badLines.Load() }

// Close is a no-op for the mock.
func (m *MockPort) Close() error { return nil }

// Monitor replays the reader's lines as decoded samples.
func (m *MockPort) Monitor(ctx context.Context) error {
	defer close(m.samples)
	return monitorLines(ctx, m.Data, m.samples, &m.badLines)
}

// monitorLines is the shared scan/decode/deliver loop.
func monitorLines(ctx context.Context, r io.Reader, out chan<- pen.Sample, badLines *atomic.Uint64) error {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := scan.Text()
		if line == "" {
			continue
		}

		s, err := ParseLine(line)
		if err != nil {
			badLines.Add(1)
			monitoring.Logf("transport: skipping line: %v", err)
			continue
		}

		select {
		case out <- s:
		case <-ctx.Done():
			return nil
		}
	}
	return scan.Err()
}
