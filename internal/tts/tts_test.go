package tts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	req   *texttospeechpb.SynthesizeSpeechRequest
	audio []byte
	err   error
}

func (f *fakeSynth) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error) {
	f.req = req
	return f.audio, f.err
}

func TestGoogleSpeakPlaysSynthesizedPCM(t *testing.T) {
	synth := &fakeSynth{audio: []byte{0x01, 0x00, 0x02, 0x00}}
	g := newGoogle(synth, nil, GoogleOptions{Voice: "en-US-Neural2-F"})

	var played []int16
	var playedRate int
	g.player = func(_ context.Context, samples []int16, rate int, _ string) error {
		played = samples
		playedRate = rate
		return nil
	}

	require.NoError(t, g.Speak(context.Background(), "Tell me about yourself."))
	require.Equal(t, []int16{1, 2}, played)
	require.Equal(t, 16000, playedRate)

	require.Equal(t, "Tell me about yourself.", synth.req.GetInput().GetText())
	require.Equal(t, "en-US", synth.req.GetVoice().GetLanguageCode())
	require.Equal(t, "en-US-Neural2-F", synth.req.GetVoice().GetName())
	require.Equal(t, texttospeechpb.AudioEncoding_PCM, synth.req.GetAudioConfig().GetAudioEncoding())
	require.InDelta(t, 0.9, synth.req.GetAudioConfig().GetSpeakingRate(), 1e-9)
	require.NoError(t, g.Close())
}

func TestGoogleSpeakSynthesisError(t *testing.T) {
	g := newGoogle(&fakeSynth{err: errors.New("quota")}, nil, GoogleOptions{})
	g.player = func(context.Context, []int16, int, string) error {
		t.Fatal("player must not run")
		return nil
	}

	err := g.Speak(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "synthesize speech")
}

func TestConsoleSpeak(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Speak(context.Background(), "  What is Go?  "))
	require.Equal(t, "\n  What is Go?\n\n", buf.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewConsole(&buf).Speak(ctx, "late"), context.Canceled)
}

func TestChainStopsAtFirstError(t *testing.T) {
	var calls []string
	chain := Chain{
		Func(func(context.Context, string) error { calls = append(calls, "a"); return nil }),
		nil,
		Func(func(context.Context, string) error { calls = append(calls, "b"); return errors.New("no audio") }),
		Func(func(context.Context, string) error { calls = append(calls, "c"); return nil }),
	}

	require.Error(t, chain.Speak(context.Background(), "q"))
	require.Equal(t, []string{"a", "b"}, calls)
}
