package domain

import (
	"errors"
	"fmt"
)

type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateLoading          SessionState = "loading"
	StateRetryingFallback SessionState = "retrying_fallback"
	StateActive           SessionState = "active"
	StateFailed           SessionState = "failed"
)

var ErrIllegalTransition = errors.New("illegal session transition")

var transitions = map[SessionState][]SessionState{
	StateIdle:             {StateLoading, StateFailed},
	StateLoading:          {StateActive, StateRetryingFallback, StateFailed, StateIdle},
	StateRetryingFallback: {StateLoading, StateActive, StateFailed, StateIdle},
	StateActive:           {StateLoading, StateFailed, StateIdle},
	StateFailed:           {StateLoading, StateIdle},
}

// CanTransition reports whether the table allows from -> to, ignoring guards.
func CanTransition(from, to SessionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is the single live playback session. It is not safe for concurrent use;
// the controller serialises access.
type Session struct {
	State             SessionState
	Source            *SourceDescriptor
	IsFallbackActive  bool
	FallbackAttempted bool
	IsRetrying        bool
	LastError         *LoadError
	Identity          Identity
	Animations        []string
	CurrentAnimation  string
	CurrentLoop       bool
}

func NewSession() *Session {
	return &Session{State: StateIdle}
}

// Transition moves the session to the given state or returns ErrIllegalTransition.
// Entering RetryingFallback is guarded: only one fallback per source, never while one is in flight.
func (s *Session) Transition(to SessionState) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
	}
	if to == StateRetryingFallback && (s.FallbackAttempted || s.IsRetrying) {
		return fmt.Errorf("%w: fallback already attempted for this source", ErrIllegalTransition)
	}
	s.State = to
	return nil
}

// Restart begins a fresh load lifecycle for source. A nil source returns the session to Idle.
func (s *Session) Restart(source *SourceDescriptor) {
	s.Source = source
	s.IsFallbackActive = false
	s.FallbackAttempted = false
	s.IsRetrying = false
	s.LastError = nil
	s.Identity = Identity{}
	s.Animations = nil
	s.CurrentAnimation = ""
	s.CurrentLoop = false
	if source == nil {
		s.State = StateIdle
		return
	}
	s.State = StateLoading
}

// BeginFallback enters RetryingFallback and marks the fallback as attempted and in flight.
func (s *Session) BeginFallback() error {
	if err := s.Transition(StateRetryingFallback); err != nil {
		return err
	}
	s.FallbackAttempted = true
	s.IsRetrying = true
	s.IsFallbackActive = true
	return nil
}

func (s *Session) EndFallback() {
	s.IsRetrying = false
}

// Fail records err and enters Failed. It clears the in-flight fallback flag.
func (s *Session) Fail(err *LoadError) {
	s.IsRetrying = false
	s.LastError = err
	if s.State != StateFailed {
		s.State = StateFailed
	}
}

func (s *Session) Activate() error {
	if err := s.Transition(StateActive); err != nil {
		return err
	}
	s.IsRetrying = false
	s.LastError = nil
	return nil
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:             s.State,
		IsFallbackActive:  s.IsFallbackActive,
		FallbackAttempted: s.FallbackAttempted,
		IsRetrying:        s.IsRetrying,
		LastError:         s.LastError,
		Identity:          s.Identity,
		CurrentAnimation:  s.CurrentAnimation,
		Loop:              s.CurrentLoop,
	}
	if s.Source != nil {
		src := *s.Source
		snap.Source = &src
	}
	if len(s.Animations) > 0 {
		snap.Animations = append([]string(nil), s.Animations...)
	}
	return snap
}
