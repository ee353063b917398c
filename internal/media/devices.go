// Package media acquires and releases the microphone and plays synthesized audio
// through the local Pulse server.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "hyrily"

var (
	ErrNoDevice          = errors.New("no microphone found")
	ErrDeviceMuted       = errors.New("microphone is muted")
	ErrDeviceUnavailable = errors.New("microphone is unavailable")
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

func (d Device) usable() bool {
	return d.Available && !d.Muted
}

// Constraints selects the microphone for a session. Empty or "default" means
// the server default source.
type Constraints struct {
	Device   string
	Fallback string
}

// Selection is the resolved source plus a note when a fallback was taken.
type Selection struct {
	Device  Device
	Warning string
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns the Pulse input sources.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil || strings.HasSuffix(info.SourceName, ".monitor") {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   portAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice resolves constraints against the live source list.
func SelectDevice(ctx context.Context, c Constraints) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return choose(devices, c)
}

func choose(devices []Device, c Constraints) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, ErrNoDevice
	}

	primary, err := find(devices, c.Device)
	if err != nil {
		return Selection{}, err
	}
	if primary.usable() {
		return Selection{Device: primary}, nil
	}

	reason := ErrDeviceUnavailable
	if primary.Muted {
		reason = ErrDeviceMuted
	}

	fallback, err := find(devices, c.Fallback)
	if err != nil || fallback.ID == primary.ID || !fallback.usable() {
		return Selection{}, fmt.Errorf("%w: %s", reason, primary.ID)
	}

	return Selection{
		Device:  fallback,
		Warning: fmt.Sprintf("microphone %q: %s; using %q", primary.ID, reason, fallback.ID),
	}, nil
}

func find(devices []Device, term string) (Device, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, dev := range devices {
		if term == "" || term == "default" {
			if dev.Default {
				return dev, nil
			}
			continue
		}
		if matches(dev, term) {
			return dev, nil
		}
	}
	if term == "" || term == "default" {
		return Device{}, fmt.Errorf("%w: no default source", ErrNoDevice)
	}
	return Device{}, fmt.Errorf("%w: %q did not match any source", ErrNoDevice, term)
}

func matches(dev Device, term string) bool {
	return strings.Contains(strings.ToLower(dev.ID), term) ||
		strings.Contains(strings.ToLower(dev.Description), term)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func portAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if len(info.Ports) == 0 {
		return true
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// unknown=0, no=1, yes=2
			return port.Available != 1
		}
	}
	return true
}
