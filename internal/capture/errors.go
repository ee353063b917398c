package capture

import (
	"errors"
	"fmt"
)

// ErrorCode is the recognizer fault taxonomy reported through Sink.OnError.
type ErrorCode string

const (
	CodeNoSpeech     ErrorCode = "no-speech"
	CodeAudioCapture ErrorCode = "audio-capture"
	CodeNotAllowed   ErrorCode = "not-allowed"
	CodeNetwork      ErrorCode = "network"
	CodeAborted      ErrorCode = "aborted"
	CodeStartFailed  ErrorCode = "start-failed"
)

type disposition int

const (
	dispositionIgnore disposition = iota
	dispositionRestart
	dispositionFatal
)

// Error is the user-facing fault held in the engine's observable state.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// PermissionDenied reports whether the fault means the microphone cannot be used.
func (e *Error) PermissionDenied() bool {
	return e != nil && (e.Code == CodeNotAllowed || e.Code == CodeAudioCapture)
}

// NewError wraps a recognizer fault code so Recognizer.Start can report it directly.
func NewError(code ErrorCode) *Error {
	_, err := classify(code)
	if err == nil {
		return &Error{Code: code, Message: string(code)}
	}
	return err
}

func classify(code ErrorCode) (disposition, *Error) {
	switch code {
	case CodeNoSpeech:
		return dispositionIgnore, nil
	case CodeNetwork, CodeAborted:
		return dispositionRestart, nil
	case CodeAudioCapture:
		return dispositionFatal, &Error{Code: code, Message: "Microphone access denied or not available"}
	case CodeNotAllowed:
		return dispositionFatal, &Error{Code: code, Message: "Microphone permission denied"}
	default:
		return dispositionFatal, &Error{Code: code, Message: fmt.Sprintf("speech recognition error: %s", code)}
	}
}

func codeOf(err error) ErrorCode {
	var captureErr *Error
	if errors.As(err, &captureErr) {
		return captureErr.Code
	}
	return CodeStartFailed
}
