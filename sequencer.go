package gobodyscale

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sequencer drives a driver's handshake one step at a time. A step is issued
// on Start or on Complete and the sequencer then waits for the transport to
// acknowledge it; prompts have no acknowledgement and advance immediately.
type Sequencer struct {
	driver    Driver
	user      UserProfile
	transport Transport
	messenger Messenger
	logger    *logrus.Logger

	mu       sync.Mutex
	step     int
	started  bool
	inFlight bool
	finished bool
	done     chan struct{}
}

// NewSequencer creates a sequencer positioned at step 0.
func NewSequencer(driver Driver, user UserProfile, transport Transport, messenger Messenger, logger *logrus.Logger) *Sequencer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sequencer{
		driver:    driver,
		user:      user,
		transport: transport,
		messenger: messenger,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start issues step 0.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	return s.run(0)
}

// Complete acknowledges the step in flight and issues the next one.
func (s *Sequencer) Complete() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return ErrSequenceDone
	}
	if !s.inFlight {
		s.mu.Unlock()
		return ErrNoStepPending
	}
	s.inFlight = false
	next := s.step + 1
	s.mu.Unlock()

	return s.run(next)
}

// Step returns the current step ordinal and whether it is waiting for an acknowledgement.
func (s *Sequencer) Step() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step, s.inFlight
}

// Done is closed once the driver reports there are no more steps.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

func (s *Sequencer) run(step int) error {
	for {
		s.mu.Lock()
		action, ok := s.driver.NextStep(step, s.user)
		if !ok {
			s.step = step
			s.finished = true
			close(s.done)
			s.mu.Unlock()
			s.logger.WithField("steps", step).Info("handshake finished")
			return nil
		}
		s.step = step
		s.inFlight = true
		s.mu.Unlock()

		s.logger.WithFields(logrus.Fields{"step": step, "action": action.Kind}).Debug("running handshake step")

		// The transport may acknowledge before perform returns, so no lock is held here.
		if err := s.perform(action); err != nil {
			s.mu.Lock()
			if s.step == step {
				s.inFlight = false
			}
			s.mu.Unlock()
			return fmt.Errorf("handshake step %d (%s): %w", step, action.Kind, err)
		}

		if action.Kind != ActionPrompt {
			return nil
		}

		s.mu.Lock()
		if !s.inFlight || s.step != step {
			s.mu.Unlock()
			return nil
		}
		s.inFlight = false
		s.mu.Unlock()
		step++
	}
}

func (s *Sequencer) perform(a Action) error {
	switch a.Kind {
	case ActionSubscribe:
		return s.transport.SubscribeNotify(a.Service, a.Characteristic)
	case ActionWrite:
		s.logger.WithField("payload", fmt.Sprintf("% X", a.Payload)).Debug("writing command")
		return s.transport.WriteCharacteristic(a.Service, a.Characteristic, a.Payload)
	case ActionPrompt:
		if s.messenger != nil {
			s.messenger.Prompt(a.MessageKey, a.MessageParam)
		}
		return nil
	default:
		return fmt.Errorf("unsupported action %s", a.Kind)
	}
}
