package tunnel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/ghostconnect/internal/agent"
	"github.com/danmuck/ghostconnect/internal/observability"
)

// TunnelState is the supervisor-owned lifecycle state of the tunnel.
type TunnelState string

const (
	StateDisconnected TunnelState = "disconnected"
	StateConnecting   TunnelState = "connecting"
	StateConnected    TunnelState = "connected"
	StateFailed       TunnelState = "failed"
)

// BusyPolicy controls what a second caller sees while a toggle is in flight.
type BusyPolicy string

const (
	// BusyBlock queues the second caller behind the in-flight toggle.
	BusyBlock BusyPolicy = "block"
	// BusyReject fails the second caller immediately with ErrBusy.
	BusyReject BusyPolicy = "reject"
)

// Config configures supervisor invocation policy.
type Config struct {
	// AgentTimeout bounds every agent invocation; zero or negative disables
	// the bound. Expiry kills the agent process.
	AgentTimeout time.Duration
	Busy         BusyPolicy
}

// Supervisor policy defaults.
func DefaultConfig() Config {
	return Config{
		AgentTimeout: 30 * time.Second,
		Busy:         BusyBlock,
	}
}

// Supervisor owns the tunnel state and drives the agent through the
// connect/stop contract. All state mutation happens inside the toggle
// critical section.
type Supervisor struct {
	mu     sync.Mutex
	state  TunnelState
	runner agent.Runner
	cfg    Config
	logger zerolog.Logger
}

// NewSupervisor constructs a supervisor in the disconnected state.
func NewSupervisor(runner agent.Runner, cfg Config, logger zerolog.Logger) *Supervisor {
	if cfg.Busy == "" {
		cfg.Busy = BusyBlock
	}
	return &Supervisor{
		state:  StateDisconnected,
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

// Status returns the current tunnel state under the toggle lock.
func (s *Supervisor) Status() TunnelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Toggle drives the tunnel toward connected (activate=true) or disconnected
// (activate=false) with exactly one agent invocation. Invocations never
// overlap: under the default block policy a concurrent caller waits for the
// in-flight toggle, under the reject policy it gets ErrBusy (and the returned
// state is empty). Connect failures are returned typed; stop never fails.
func (s *Supervisor) Toggle(ctx context.Context, activate bool) (TunnelState, error) {
	if s.cfg.Busy == BusyReject {
		if !s.mu.TryLock() {
			return "", ErrBusy
		}
	} else {
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	logger := s.logger.With().
		Str("toggle_id", uuid.NewString()).
		Bool("activate", activate).
		Logger()

	if activate {
		return s.connect(ctx, logger)
	}
	return s.stop(ctx, logger)
}

// connect runs the strict, fail-closed side of the contract. Caller holds mu.
func (s *Supervisor) connect(ctx context.Context, logger zerolog.Logger) (TunnelState, error) {
	prior := s.state
	s.state = StateConnecting

	start := time.Now()
	stdout, stderr, exitCode, err := s.invoke(ctx, agent.DirectiveConnect)
	observability.RecordAgentInvocation(agent.DirectiveConnect, exitCode)

	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			s.state = prior
			s.recordConnect("timeout", start)
			logger.Error().Dur("elapsed", time.Since(start)).Msg("agent connect timed out")
			// The deadline may come from the caller's context rather than
			// AgentTimeout, so report the observed wait.
			return prior, fmt.Errorf("%w after %s", ErrAgentTimeout, time.Since(start).Round(time.Millisecond))
		case errors.Is(err, context.Canceled):
			s.state = prior
			s.recordConnect("canceled", start)
			logger.Warn().Msg("agent connect canceled")
			return prior, fmt.Errorf("tunnel: connect canceled: %w", err)
		case errors.Is(err, agent.ErrLaunch):
			s.state = StateDisconnected
			s.recordConnect("launch_failed", start)
			logger.Error().Err(err).Msg("agent could not be launched")
			return StateDisconnected, fmt.Errorf("%w: %v", ErrAgentLaunchFailed, err)
		}
		// The agent ran and exited nonzero. The minimal contract decides
		// connect purely on payload content; log the disagreement and parse.
		logger.Warn().Int32("exit", exitCode).Str("stderr", string(stderr)).
			Msg("agent connect exited nonzero")
	}

	result, parseErr := agent.ParseResult(stdout)
	if parseErr != nil {
		s.state = StateDisconnected
		s.recordConnect("protocol_violation", start)
		logger.Error().Err(parseErr).Int32("exit", exitCode).Msg("agent result unreadable")
		return StateDisconnected, fmt.Errorf("%w: %v", ErrProtocolViolation, parseErr)
	}

	if result.Success {
		s.state = StateConnected
		s.recordConnect("connected", start)
		logger.Info().Dur("elapsed", time.Since(start)).Msg("tunnel connected")
		return StateConnected, nil
	}

	s.state = StateFailed
	s.recordConnect("auth_failed", start)
	logger.Error().Str("agent_message", result.Message).Msg("agent rejected connect")
	if result.Message != "" {
		return StateFailed, fmt.Errorf("%w: %s", ErrAuthOrConnectFailed, result.Message)
	}
	return StateFailed, ErrAuthOrConnectFailed
}

// stop runs the best-effort side of the contract: whatever the agent does,
// the tunnel is logically down afterwards. Caller holds mu.
func (s *Supervisor) stop(ctx context.Context, logger zerolog.Logger) (TunnelState, error) {
	start := time.Now()
	_, stderr, exitCode, err := s.invoke(ctx, agent.DirectiveStop)
	observability.RecordAgentInvocation(agent.DirectiveStop, exitCode)

	if err != nil {
		logger.Warn().Err(err).Int32("exit", exitCode).Str("stderr", string(stderr)).
			Msg("agent stop failed; treating tunnel as down")
	} else if exitCode != 0 {
		logger.Warn().Int32("exit", exitCode).Msg("agent stop exited nonzero; treating tunnel as down")
	}

	s.state = StateDisconnected
	observability.RecordToggle(agent.DirectiveStop, "disconnected", time.Since(start))
	logger.Info().Msg("tunnel disconnected")
	return StateDisconnected, nil
}

func (s *Supervisor) invoke(ctx context.Context, directive string) ([]byte, []byte, int32, error) {
	if s.cfg.AgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AgentTimeout)
		defer cancel()
	}
	return s.runner.Invoke(ctx, directive)
}

func (s *Supervisor) recordConnect(outcome string, start time.Time) {
	observability.RecordToggle(agent.DirectiveConnect, outcome, time.Since(start))
}
