package stt

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hyrily/hyrily/internal/capture"
	"github.com/hyrily/hyrily/internal/media"
)

type fakeAudio struct {
	chunks   chan []byte
	releases atomic.Int32
	once     sync.Once
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{chunks: make(chan []byte, 8)}
}

func (a *fakeAudio) Chunks() <-chan []byte { return a.chunks }

func (a *fakeAudio) Release() error {
	a.releases.Add(1)
	a.once.Do(func() { close(a.chunks) })
	return nil
}

type fakeStream struct {
	ctx       context.Context
	mu        sync.Mutex
	sent      []*speechpb.StreamingRecognizeRequest
	responses chan *speechpb.StreamingRecognizeResponse
	recvErr   chan error
}

func newFakeStream(ctx context.Context) *fakeStream {
	return &fakeStream{
		ctx:       ctx,
		responses: make(chan *speechpb.StreamingRecognizeResponse, 8),
		recvErr:   make(chan error, 1),
	}
}

func (s *fakeStream) Send(req *speechpb.StreamingRecognizeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil
}

func (s *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	select {
	case resp := <-s.responses:
		return resp, nil
	case err := <-s.recvErr:
		return nil, err
	case <-s.ctx.Done():
		return nil, status.Error(codes.Canceled, "context canceled")
	}
}

func (s *fakeStream) CloseSend() error { return nil }

func (s *fakeStream) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordingSink struct {
	mu      sync.Mutex
	starts  int
	ends    int
	errors  []capture.ErrorCode
	results [][]capture.Result
}

func (s *recordingSink) OnStart() { s.mu.Lock(); s.starts++; s.mu.Unlock() }
func (s *recordingSink) OnEnd()   { s.mu.Lock(); s.ends++; s.mu.Unlock() }
func (s *recordingSink) OnError(code capture.ErrorCode) {
	s.mu.Lock()
	s.errors = append(s.errors, code)
	s.mu.Unlock()
}
func (s *recordingSink) OnResult(r []capture.Result) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() (int, int, []capture.ErrorCode, [][]capture.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.ends, append([]capture.ErrorCode(nil), s.errors...), append([][]capture.Result(nil), s.results...)
}

func newTestGoogle(t *testing.T) (*Google, *fakeAudio, **fakeStream) {
	t.Helper()
	audio := newFakeAudio()
	var stream *fakeStream
	g := newGoogle(GoogleOptions{Language: "en-GB"})
	g.openAudio = func(context.Context) (AudioSource, error) { return audio, nil }
	g.openRecog = func(ctx context.Context) (recognizeStream, error) {
		stream = newFakeStream(ctx)
		return stream, nil
	}
	return g, audio, &stream
}

func TestGoogleStreamsResultsAndAudio(t *testing.T) {
	g, audio, streamRef := newTestGoogle(t)
	sink := &recordingSink{}

	require.NoError(t, g.Start(sink))
	stream := *streamRef

	stream.mu.Lock()
	cfg := stream.sent[0].GetStreamingConfig()
	stream.mu.Unlock()
	require.NotNil(t, cfg)
	require.True(t, cfg.GetInterimResults())
	require.Equal(t, "en-GB", cfg.GetConfig().GetLanguageCode())
	require.Equal(t, int32(16000), cfg.GetConfig().GetSampleRateHertz())

	audio.chunks <- []byte{1, 2, 3, 4}
	require.Eventually(t, func() bool { return stream.sentCount() == 2 }, time.Second, 5*time.Millisecond)

	stream.responses <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hello world"}}, IsFinal: true},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "and"}}},
			{},
		},
	}

	require.Eventually(t, func() bool {
		_, _, _, results := sink.snapshot()
		return len(results) == 1
	}, time.Second, 5*time.Millisecond)

	starts, _, _, results := sink.snapshot()
	require.Equal(t, 1, starts)
	require.Equal(t, []capture.Result{{Text: "hello world", Final: true}, {Text: "and"}}, results[0])

	require.NoError(t, g.Stop())
	require.Equal(t, int32(1), audio.releases.Load())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), audio.releases.Load())
	_, ends, errs, _ := sink.snapshot()
	require.Zero(t, ends)
	require.Empty(t, errs)
}

func TestGoogleStreamLimitEndsCleanly(t *testing.T) {
	g, _, streamRef := newTestGoogle(t)
	sink := &recordingSink{}
	require.NoError(t, g.Start(sink))

	(*streamRef).recvErr <- status.Error(codes.OutOfRange, "exceeded maximum allowed stream duration")

	require.Eventually(t, func() bool {
		_, ends, _, _ := sink.snapshot()
		return ends == 1
	}, time.Second, 5*time.Millisecond)
	_, _, errs, _ := sink.snapshot()
	require.Empty(t, errs)

	require.NoError(t, g.Start(sink))
	starts, _, _, _ := sink.snapshot()
	require.Equal(t, 2, starts)
}

func TestGoogleNetworkFaultReportsErrorThenEnd(t *testing.T) {
	g, _, streamRef := newTestGoogle(t)
	sink := &recordingSink{}
	require.NoError(t, g.Start(sink))

	(*streamRef).responses <- &speechpb.StreamingRecognizeResponse{}
	(*streamRef).recvErr <- status.Error(codes.Unavailable, "transport is closing")

	require.Eventually(t, func() bool {
		_, ends, _, _ := sink.snapshot()
		return ends == 1
	}, time.Second, 5*time.Millisecond)
	_, _, errs, results := sink.snapshot()
	require.Equal(t, []capture.ErrorCode{capture.CodeNetwork}, errs)
	require.Empty(t, results)
}

func TestGoogleStartMicrophoneFailure(t *testing.T) {
	g := newGoogle(GoogleOptions{})
	g.openAudio = func(context.Context) (AudioSource, error) { return nil, media.ErrDeviceMuted }

	err := g.Start(&recordingSink{})
	var captureErr *capture.Error
	require.ErrorAs(t, err, &captureErr)
	require.Equal(t, capture.CodeNotAllowed, captureErr.Code)
}

func TestGoogleStartRecognizerFailureReleasesAudio(t *testing.T) {
	audio := newFakeAudio()
	g := newGoogle(GoogleOptions{})
	g.openAudio = func(context.Context) (AudioSource, error) { return audio, nil }
	g.openRecog = func(context.Context) (recognizeStream, error) {
		return nil, status.Error(codes.Unauthenticated, "bad key")
	}

	err := g.Start(&recordingSink{})
	var captureErr *capture.Error
	require.ErrorAs(t, err, &captureErr)
	require.Equal(t, capture.CodeNotAllowed, captureErr.Code)
	require.Equal(t, int32(1), audio.releases.Load())
}

func TestStreamCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want capture.ErrorCode
	}{
		{err: io.EOF, want: ""},
		{err: status.Error(codes.OutOfRange, "limit"), want: ""},
		{err: status.Error(codes.Unavailable, "down"), want: capture.CodeNetwork},
		{err: status.Error(codes.DeadlineExceeded, "slow"), want: capture.CodeNetwork},
		{err: status.Error(codes.Canceled, "cancel"), want: capture.CodeAborted},
		{err: context.Canceled, want: capture.CodeAborted},
		{err: status.Error(codes.PermissionDenied, "no"), want: capture.CodeNotAllowed},
		{err: status.Error(codes.InvalidArgument, "bad"), want: capture.ErrorCode("bad-grammar")},
		{err: errors.New("weird"), want: capture.ErrorCode("service-Unknown")},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, streamCode(tc.err), "%v", tc.err)
	}
}

func TestAudioCode(t *testing.T) {
	require.Equal(t, capture.CodeNotAllowed, audioCode(media.ErrDeviceMuted))
	require.Equal(t, capture.CodeAudioCapture, audioCode(media.ErrNoDevice))
	require.Equal(t, capture.CodeAudioCapture, audioCode(errors.New("connect pulse server")))
}

func TestGoogleWithCaptureEngine(t *testing.T) {
	g, _, streamRef := newTestGoogle(t)
	engine := capture.New(g, capture.WithRestartDelay(20*time.Millisecond))

	require.NoError(t, engine.StartListening())
	require.True(t, engine.Listening())

	(*streamRef).responses <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "I build APIs"}}, IsFinal: true},
		},
	}
	require.Eventually(t, func() bool { return engine.FinalTranscript() == "I build APIs" }, time.Second, 5*time.Millisecond)

	engine.StopListening()
	require.False(t, engine.Listening())
}

func TestConfigRequestCarriesPhraseHints(t *testing.T) {
	g := newGoogle(GoogleOptions{Phrases: []Phrase{
		{Text: "Kubernetes", Boost: 10},
		{Text: "gRPC", Boost: 10},
		{Text: "React", Boost: 5},
		{Text: ""},
	}})

	cfg := g.configRequest().GetStreamingConfig().GetConfig()
	require.Len(t, cfg.GetSpeechContexts(), 2)
	require.Equal(t, []string{"Kubernetes", "gRPC"}, cfg.GetSpeechContexts()[0].GetPhrases())
	require.Equal(t, float32(10), cfg.GetSpeechContexts()[0].GetBoost())
	require.Equal(t, []string{"React"}, cfg.GetSpeechContexts()[1].GetPhrases())
}
