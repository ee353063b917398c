package media

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate = 16000
	// 100ms of 16kHz mono s16le.
	chunkBytes = 3200
)

// Handle is a media resource owned by one session and released at its end.
type Handle interface {
	Release() error
}

// Microphone is an exclusively owned capture stream.
type Microphone struct {
	device Device
	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	done   chan struct{}

	mu       sync.Mutex
	pending  []byte
	released bool
	inflight sync.WaitGroup
}

// Acquire opens the microphone selected by c and starts recording.
func Acquire(ctx context.Context, c Constraints) (*Microphone, error) {
	selection, err := SelectDevice(ctx, c)
	if err != nil {
		return nil, err
	}
	return Open(selection.Device)
}

// Open starts recording from a known device.
func Open(device Device) (*Microphone, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	mic := &Microphone{
		device: device,
		client: client,
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(mic.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkBytes),
		pulse.RecordMediaName("hyrily interview"),
	)
	if err != nil {
		_ = mic.Release()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	mic.stream = stream
	stream.Start()
	return mic, nil
}

func (m *Microphone) Device() Device {
	return m.device
}

// Chunks yields PCM in fixed-size slices until Release.
func (m *Microphone) Chunks() <-chan []byte {
	return m.chunks
}

// Release stops all capture and frees the device. Safe to call more than once.
func (m *Microphone) Release() error {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return nil
	}
	m.released = true
	close(m.done)
	m.mu.Unlock()

	var result error
	if m.stream != nil {
		m.stream.Stop()
		if err := m.stream.Error(); err != nil {
			result = multierror.Append(result, fmt.Errorf("record stream: %w", err))
		}
		m.stream.Close()
	}
	if m.client != nil {
		m.client.Close()
	}

	m.inflight.Wait()
	close(m.chunks)
	return result
}

func (m *Microphone) write(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return 0, io.EOF
	}
	m.inflight.Add(1)
	m.pending = append(m.pending, buf...)
	var ready [][]byte
	for len(m.pending) >= chunkBytes {
		chunk := make([]byte, chunkBytes)
		copy(chunk, m.pending[:chunkBytes])
		m.pending = m.pending[chunkBytes:]
		ready = append(ready, chunk)
	}
	m.mu.Unlock()
	defer m.inflight.Done()

	for _, chunk := range ready {
		select {
		case <-m.done:
			return 0, io.EOF
		case m.chunks <- chunk:
		}
	}
	return len(buf), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
