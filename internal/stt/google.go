// Package stt provides platform speech recognizers for the capture engine.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hyrily/hyrily/internal/capture"
	"github.com/hyrily/hyrily/internal/media"
)

// AudioSource is a released-on-stop PCM feed, normally *media.Microphone.
type AudioSource interface {
	Chunks() <-chan []byte
	Release() error
}

type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// GoogleOptions configures streaming recognition.
type GoogleOptions struct {
	Language    string
	Constraints media.Constraints
	Phrases     []Phrase
	Logger      *slog.Logger
}

// Phrase is a recognition hint, typically stack vocabulary such as "Kubernetes".
type Phrase struct {
	Text  string
	Boost float32
}

// Google is a continuous recognizer over Cloud Speech-to-Text streaming.
type Google struct {
	language  string
	contexts  []*speechpb.SpeechContext
	logger    *slog.Logger
	openAudio func(ctx context.Context) (AudioSource, error)
	openRecog func(ctx context.Context) (recognizeStream, error)
	closer    io.Closer

	mu      sync.Mutex
	current *run
}

type run struct {
	cancel context.CancelFunc
	audio  AudioSource
	once   sync.Once
	err    error
}

func (r *run) stop() error {
	r.once.Do(func() {
		r.cancel()
		r.err = r.audio.Release()
	})
	return r.err
}

func NewGoogle(ctx context.Context, opts GoogleOptions, clientOpts ...option.ClientOption) (*Google, error) {
	client, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	g := newGoogle(opts)
	g.closer = client
	g.openRecog = func(ctx context.Context) (recognizeStream, error) {
		return client.StreamingRecognize(ctx)
	}
	g.openAudio = func(ctx context.Context) (AudioSource, error) {
		return media.Acquire(ctx, opts.Constraints)
	}
	return g, nil
}

func newGoogle(opts GoogleOptions) *Google {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	language := opts.Language
	if language == "" {
		language = "en-US"
	}
	return &Google{language: language, contexts: speechContexts(opts.Phrases), logger: logger}
}

// speechContexts groups hints by boost, one context per distinct boost.
func speechContexts(phrases []Phrase) []*speechpb.SpeechContext {
	var out []*speechpb.SpeechContext
	byBoost := make(map[float32]*speechpb.SpeechContext)
	for _, p := range phrases {
		if p.Text == "" {
			continue
		}
		sc, ok := byBoost[p.Boost]
		if !ok {
			sc = &speechpb.SpeechContext{Boost: p.Boost}
			byBoost[p.Boost] = sc
			out = append(out, sc)
		}
		sc.Phrases = append(sc.Phrases, p.Text)
	}
	return out
}

func (g *Google) Close() error {
	_ = g.Stop()
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}

// Start opens the microphone and a recognition stream. Faults are returned as
// *capture.Error so the engine can classify them.
func (g *Google) Start(sink capture.Sink) error {
	g.mu.Lock()
	if g.current != nil {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	audio, err := g.openAudio(ctx)
	if err != nil {
		cancel()
		g.logger.Warn("open microphone failed", "error", err.Error())
		return capture.NewError(audioCode(err))
	}

	stream, err := g.openRecog(ctx)
	if err != nil {
		cancel()
		_ = audio.Release()
		return capture.NewError(statusCode(err))
	}

	if err := stream.Send(g.configRequest()); err != nil {
		cancel()
		_ = audio.Release()
		return capture.NewError(statusCode(err))
	}

	r := &run{cancel: cancel, audio: audio}
	g.mu.Lock()
	g.current = r
	g.mu.Unlock()

	sink.OnStart()
	go g.sendLoop(ctx, r, stream)
	go g.recvLoop(r, stream, sink)
	return nil
}

// Stop ends the active stream without emitting callbacks.
func (g *Google) Stop() error {
	g.mu.Lock()
	r := g.current
	g.current = nil
	g.mu.Unlock()

	if r == nil {
		return nil
	}
	return r.stop()
}

func (g *Google) configRequest() *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            media.SampleRate,
					AudioChannelCount:          1,
					LanguageCode:               g.language,
					EnableAutomaticPunctuation: true,
					Model:                      "latest_long",
					SpeechContexts:             g.contexts,
				},
				InterimResults: true,
			},
		},
	}
}

func (g *Google) sendLoop(ctx context.Context, r *run, stream recognizeStream) {
	defer func() { _ = stream.CloseSend() }()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-r.audio.Chunks():
			if !ok {
				return
			}
			err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
			})
			if err != nil {
				g.logger.Debug("send audio failed", "error", err.Error())
				return
			}
		}
	}
}

func (g *Google) recvLoop(r *run, stream recognizeStream, sink capture.Sink) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			g.finish(r, sink, streamCode(err))
			return
		}
		if st := resp.GetError(); st != nil && codes.Code(st.GetCode()) != codes.OK {
			g.finish(r, sink, streamCode(status.ErrorProto(st)))
			return
		}
		if results := convert(resp.GetResults()); len(results) > 0 && g.isCurrent(r) {
			sink.OnResult(results)
		}
	}
}

// finish retires r and reports the end of the stream if it was not stopped.
func (g *Google) finish(r *run, sink capture.Sink, code capture.ErrorCode) {
	g.mu.Lock()
	active := g.current == r
	if active {
		g.current = nil
	}
	g.mu.Unlock()

	_ = r.stop()
	if !active {
		return
	}
	if code != "" {
		sink.OnError(code)
	}
	sink.OnEnd()
}

func (g *Google) isCurrent(r *run) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current == r
}

func convert(in []*speechpb.StreamingRecognitionResult) []capture.Result {
	out := make([]capture.Result, 0, len(in))
	for _, result := range in {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		out = append(out, capture.Result{
			Text:  alternatives[0].GetTranscript(),
			Final: result.GetIsFinal(),
		})
	}
	return out
}

// streamCode maps a stream termination to the recognizer taxonomy. An empty
// code means a clean end of stream.
func streamCode(err error) capture.ErrorCode {
	if errors.Is(err, io.EOF) {
		return ""
	}
	switch status.Code(err) {
	case codes.OutOfRange:
		return ""
	default:
		return statusCode(err)
	}
}

func statusCode(err error) capture.ErrorCode {
	if errors.Is(err, context.Canceled) {
		return capture.CodeAborted
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal:
		return capture.CodeNetwork
	case codes.Canceled, codes.Aborted:
		return capture.CodeAborted
	case codes.PermissionDenied, codes.Unauthenticated:
		return capture.CodeNotAllowed
	case codes.InvalidArgument:
		return capture.ErrorCode("bad-grammar")
	default:
		return capture.ErrorCode(fmt.Sprintf("service-%s", status.Code(err)))
	}
}

func audioCode(err error) capture.ErrorCode {
	if errors.Is(err, media.ErrDeviceMuted) || errors.Is(err, fs.ErrPermission) {
		return capture.CodeNotAllowed
	}
	return capture.CodeAudioCapture
}
