// Package robot owns the mutable robot state shared by the interpreter and
// its passive observers.
package robot

import (
	"math"
	"sync"

	"github.com/metalagman/robolab/internal/model"
	"github.com/rs/zerolog/log"
)

// Store is the single robot state record. Writes are immediately visible to
// the next Snapshot. There is one writer at a time (the active run); the lock
// only protects observers reading from other goroutines.
type Store struct {
	mu     sync.RWMutex
	state  model.RobotState
	nextID int
	subs   map[int]chan model.RobotState
}

// NewStore creates a store holding initial.
func NewStore(initial model.RobotState) *Store {
	return &Store{
		state: initial,
		subs:  make(map[int]chan model.RobotState),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() model.RobotState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update merges the non-nil fields of u into the state. A position component
// that is NaN or infinite is dropped and the previous value kept.
func (s *Store) Update(u model.StateUpdate) model.RobotState {
	s.mu.Lock()
	next := s.state
	mergeCoord(&next.X, u.X, "x")
	mergeCoord(&next.Y, u.Y, "y")
	mergeCoord(&next.Z, u.Z, "z")
	mergeCoord(&next.Rotation, u.Rotation, "rotation")
	if u.Speed != nil {
		next.Speed = *u.Speed
	}
	if u.LEDLeftColor != nil {
		next.LEDLeftColor = *u.LEDLeftColor
	}
	if u.LEDRightColor != nil {
		next.LEDRightColor = *u.LEDRightColor
	}
	if u.IsMoving != nil {
		next.IsMoving = *u.IsMoving
	}
	if u.IsTouching != nil {
		next.IsTouching = *u.IsTouching
	}
	s.state = next
	s.publishLocked(next)
	s.mu.Unlock()
	return next
}

// Replace overwrites the whole state, used by resets.
func (s *Store) Replace(state model.RobotState) {
	s.mu.Lock()
	s.state = state
	s.publishLocked(state)
	s.mu.Unlock()
}

// Subscribe returns a channel receiving every new state. Slow readers only
// see the latest state; intermediate ones are dropped. The returned func
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan model.RobotState, func()) {
	ch := make(chan model.RobotState, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *Store) publishLocked(state model.RobotState) {
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			// Drop the stale value and keep the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

func mergeCoord(dst *float64, v *float64, field string) {
	if v == nil {
		return
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		log.Debug().Str("field", field).Float64("kept", *dst).Msg("rejected non-finite state update")
		return
	}
	*dst = *v
}
