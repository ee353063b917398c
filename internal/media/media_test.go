package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChooseDefaultDevice(t *testing.T) {
	devices := []Device{
		{ID: "usb-headset", Description: "USB Headset", Available: true},
		{ID: "builtin", Description: "Built-in Audio", Available: true, Default: true},
	}

	selection, err := choose(devices, Constraints{})
	require.NoError(t, err)
	require.Equal(t, "builtin", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestChooseByDescription(t *testing.T) {
	devices := []Device{
		{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono", Available: true},
		{ID: "builtin", Description: "Built-in Audio", Available: true, Default: true},
	}

	selection, err := choose(devices, Constraints{Device: "wave 3"})
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-elgato", selection.Device.ID)
}

func TestChooseMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Available: true, Muted: true, Default: true},
		{ID: "headset", Available: true},
	}

	selection, err := choose(devices, Constraints{Device: "default", Fallback: "headset"})
	require.NoError(t, err)
	require.Equal(t, "headset", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
}

func TestChooseMutedWithoutFallbackIsPermissionLike(t *testing.T) {
	devices := []Device{{ID: "elgato", Available: true, Muted: true, Default: true}}

	_, err := choose(devices, Constraints{})
	require.ErrorIs(t, err, ErrDeviceMuted)
}

func TestChooseUnavailablePrimary(t *testing.T) {
	devices := []Device{{ID: "elgato", Available: false, Default: true}}

	_, err := choose(devices, Constraints{Fallback: "elgato"})
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestChooseUnknownDevice(t *testing.T) {
	devices := []Device{{ID: "elgato", Available: true, Default: true}}

	_, err := choose(devices, Constraints{Device: "missing"})
	require.ErrorIs(t, err, ErrNoDevice)
	require.Contains(t, err.Error(), "did not match")
}

func TestChooseEmptyList(t *testing.T) {
	_, err := choose(nil, Constraints{})
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestPCM16(t *testing.T) {
	require.Equal(t, []int16{1, -1, 256}, PCM16([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01, 0x07}))
}

func TestSourceState(t *testing.T) {
	require.Equal(t, "running", sourceState(0))
	require.Equal(t, "suspended", sourceState(2))
	require.Equal(t, "unknown(9)", sourceState(9))
}

func TestListDevicesFailsWithoutPulse(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = Acquire(context.Background(), Constraints{})
	require.Error(t, err)
}

func TestPlayEmptyIsNoop(t *testing.T) {
	require.NoError(t, Play(context.Background(), nil, SampleRate, "test"))
}
