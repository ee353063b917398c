// Package fsm holds the pure phase transition table for an interview turn loop.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle             State = "idle"
	StateSpeaking         State = "speaking"
	StateAwaitingResponse State = "awaiting_response"
	StateRecording        State = "recording"
	StateScoring          State = "scoring"
	StateComplete         State = "complete"
	StateCancelled        State = "cancelled"
)

const (
	EventStart      Event = "start"
	EventSpeechDone Event = "speech_done"
	EventRecord     Event = "record"
	EventStopEmpty  Event = "stop_empty"
	EventSubmit     Event = "submit"
	EventTimeout    Event = "timeout"
	EventNext       Event = "next"
	EventFinish     Event = "finish"
	EventDeadline   Event = "deadline"
	EventCancel     Event = "cancel"
)

// Terminal reports whether no further transitions are possible from state.
func Terminal(state State) bool {
	return state == StateComplete || state == StateCancelled
}

// Active reports whether the candidate may respond in state.
func Active(state State) bool {
	return state == StateAwaitingResponse || state == StateRecording
}

func Transition(current State, event Event) (State, error) {
	if event == EventCancel && !Terminal(current) && isKnown(current) {
		return StateCancelled, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateSpeaking, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSpeaking:
		switch event {
		case EventSpeechDone:
			return StateAwaitingResponse, nil
		case EventDeadline:
			return StateComplete, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingResponse:
		switch event {
		case EventRecord:
			return StateRecording, nil
		case EventSubmit, EventTimeout:
			return StateScoring, nil
		case EventDeadline:
			return StateComplete, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventSubmit, EventTimeout:
			return StateScoring, nil
		case EventStopEmpty:
			return StateAwaitingResponse, nil
		case EventDeadline:
			return StateComplete, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateScoring:
		switch event {
		case EventNext:
			return StateSpeaking, nil
		case EventFinish, EventDeadline:
			return StateComplete, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateComplete, StateCancelled:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func isKnown(state State) bool {
	switch state {
	case StateIdle, StateSpeaking, StateAwaitingResponse, StateRecording, StateScoring, StateComplete, StateCancelled:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
