package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/hyrily/hyrily/internal/config"
	"github.com/hyrily/hyrily/internal/media"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	cueSampleRate = 16000
	cueTimeout    = 4 * time.Second
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cuePCM = map[cueKind][]int16{
	cueStart: synthesizeCue(
		toneSpec{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		toneSpec{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	),
	cueStop: synthesizeCue(
		toneSpec{frequencyHz: 620, duration: 120 * time.Millisecond, volume: 0.18},
	),
	cueComplete: synthesizeCue(
		toneSpec{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.18},
		toneSpec{frequencyHz: 988, duration: 90 * time.Millisecond, volume: 0.18},
		toneSpec{frequencyHz: 1319, duration: 120 * time.Millisecond, volume: 0.18},
	),
	cueCancel: synthesizeCue(
		toneSpec{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		toneSpec{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	),
}

// Cues plays short audio cues around recording and session end. Cues play one
// at a time in the order they were emitted and never block the caller.
type Cues struct {
	cfg    config.CuesConfig
	logger *slog.Logger

	play     func(ctx context.Context, samples []int16, rate int, name string) error
	playFile func(ctx context.Context, path string) error

	mu      sync.Mutex
	pending []cueKind
	playing bool
	wg      sync.WaitGroup
}

func NewCues(cfg config.CuesConfig, logger *slog.Logger) *Cues {
	return &Cues{cfg: cfg, logger: logger, play: media.Play, playFile: playCueFile}
}

func (c *Cues) emit(kind cueKind) {
	if c == nil || !c.cfg.Enable {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, kind)
	if c.playing {
		return
	}
	c.playing = true
	c.wg.Add(1)
	go c.drain()
}

// drain plays queued cues until the queue is empty.
func (c *Cues) drain() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.playing = false
			c.mu.Unlock()
			return
		}
		kind := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		if err := c.render(ctx, kind); err != nil && c.logger != nil {
			c.logger.Debug("audio cue failed", "error", err.Error())
		}
		cancel()
	}
}

// render prefers a configured cue file and falls back to the synthesized tone.
func (c *Cues) render(ctx context.Context, kind cueKind) error {
	if path := c.cuePath(kind); path != "" {
		if err := c.playFile(ctx, path); err == nil {
			return nil
		}
	}
	return c.play(ctx, cuePCM[kind], cueSampleRate, "hyrily cue")
}

// Wait blocks until queued cues have played.
func (c *Cues) Wait() {
	if c != nil {
		c.wg.Wait()
	}
}

func (c *Cues) cuePath(kind cueKind) string {
	var raw string
	switch kind {
	case cueStart:
		raw = c.cfg.StartFile
	case cueStop:
		raw = c.cfg.StopFile
	case cueComplete:
		raw = c.cfg.CompleteFile
	case cueCancel:
		raw = c.cfg.CancelFile
	}
	return config.ExpandUser(raw)
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// synthesizeCue joins tones with a short silent gap.
func synthesizeCue(parts ...toneSpec) []int16 {
	gap := make([]int16, samplesForDuration(22*time.Millisecond))
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack/release of at most 5ms.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := max(min(n/10, cueSampleRate/200), 1)
	pcm := make([]int16, n)
	for i := range pcm {
		envelope := math.Min(1, math.Min(float64(i)/float64(ramp), float64(n-i-1)/float64(ramp)))
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
