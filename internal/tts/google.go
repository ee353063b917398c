package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/hyrily/hyrily/internal/media"
)

const (
	DefaultLanguage     = "en-US"
	DefaultSpeakingRate = 0.9
)

// GoogleOptions selects the synthesized voice.
type GoogleOptions struct {
	Language     string
	Voice        string
	SpeakingRate float64
}

type synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error)
}

type cloudSynthesizer struct {
	client *texttospeech.Client
}

func (c cloudSynthesizer) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error) {
	resp, err := c.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.GetAudioContent(), nil
}

// Google synthesizes with Cloud Text-to-Speech and plays through Pulse.
type Google struct {
	synth  synthesizer
	close  func() error
	opts   GoogleOptions
	player func(ctx context.Context, samples []int16, rate int, name string) error
}

func NewGoogle(ctx context.Context, opts GoogleOptions, clientOpts ...option.ClientOption) (*Google, error) {
	client, err := texttospeech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return newGoogle(cloudSynthesizer{client: client}, client.Close, opts), nil
}

func newGoogle(synth synthesizer, closeFn func() error, opts GoogleOptions) *Google {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.SpeakingRate <= 0 {
		opts.SpeakingRate = DefaultSpeakingRate
	}
	return &Google{synth: synth, close: closeFn, opts: opts, player: media.Play}
}

func (g *Google) request(text string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.opts.Language,
			Name:         g.opts.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_PCM,
			SampleRateHertz: media.SampleRate,
			SpeakingRate:    g.opts.SpeakingRate,
		},
	}
}

func (g *Google) Speak(ctx context.Context, text string) error {
	audio, err := g.synth.SynthesizeSpeech(ctx, g.request(text))
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	return g.player(ctx, media.PCM16(audio), media.SampleRate, "hyrily interviewer")
}

func (g *Google) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}
