package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyrily/hyrily/internal/config"
)

type recordedCue struct {
	samples int
	file    string
}

type cueRecorder struct {
	mu      sync.Mutex
	played  []recordedCue
	fileErr error
}

func (r *cueRecorder) install(c *Cues) {
	c.play = func(_ context.Context, samples []int16, rate int, _ string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.played = append(r.played, recordedCue{samples: len(samples)})
		return nil
	}
	c.playFile = func(_ context.Context, path string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.fileErr != nil {
			return r.fileErr
		}
		r.played = append(r.played, recordedCue{file: path})
		return nil
	}
}

func (r *cueRecorder) snapshot() []recordedCue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedCue(nil), r.played...)
}

func TestCueSamplesPresent(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueComplete, cueCancel} {
		require.NotEmpty(t, cuePCM[kind])
	}
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueAddsGaps(t *testing.T) {
	tone := toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2}
	got := synthesizeCue(tone, tone)
	want := 2*samplesForDuration(50*time.Millisecond) + samplesForDuration(22*time.Millisecond)
	require.Len(t, got, want)
}

func TestCuesDisabledPlaysNothing(t *testing.T) {
	cues := NewCues(config.CuesConfig{Enable: false}, nil)
	rec := &cueRecorder{}
	rec.install(cues)

	cues.emit(cueStart)
	cues.Wait()
	require.Empty(t, rec.snapshot())

	var nilCues *Cues
	nilCues.emit(cueStart)
	nilCues.Wait()
}

func TestCuesPreferConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	cues := NewCues(config.CuesConfig{Enable: true, StartFile: path}, nil)
	rec := &cueRecorder{}
	rec.install(cues)

	cues.emit(cueStart)
	cues.emit(cueStop)
	cues.Wait()

	require.Equal(t, []recordedCue{{file: path}, {samples: len(cuePCM[cueStop])}}, rec.snapshot())
}

func TestCuesPlayInEmitOrderOneAtATime(t *testing.T) {
	cues := NewCues(config.CuesConfig{Enable: true}, nil)

	var (
		mu      sync.Mutex
		order   []int
		active  int
		overlap bool
	)
	cues.play = func(_ context.Context, samples []int16, _ int, _ string) error {
		mu.Lock()
		active++
		overlap = overlap || active > 1
		mu.Unlock()

		if len(samples) == len(cuePCM[cueStart]) {
			time.Sleep(30 * time.Millisecond)
		}

		mu.Lock()
		active--
		order = append(order, len(samples))
		mu.Unlock()
		return nil
	}

	cues.emit(cueStart)
	cues.emit(cueStop)
	cues.emit(cueComplete)
	cues.Wait()

	mu.Lock()
	require.False(t, overlap)
	require.Equal(t, []int{len(cuePCM[cueStart]), len(cuePCM[cueStop]), len(cuePCM[cueComplete])}, order)
	mu.Unlock()

	cues.emit(cueCancel)
	cues.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 4)
	require.Equal(t, len(cuePCM[cueCancel]), order[3])
}

func TestCuesFallBackToToneWhenFileFails(t *testing.T) {
	cues := NewCues(config.CuesConfig{Enable: true, CancelFile: "/missing.wav"}, nil)
	rec := &cueRecorder{fileErr: errors.New("pw-play missing")}
	rec.install(cues)

	cues.emit(cueCancel)
	cues.Wait()
	require.Equal(t, []recordedCue{{samples: len(cuePCM[cueCancel])}}, rec.snapshot())
}

func TestPlayCueFileMissing(t *testing.T) {
	err := playCueFile(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
