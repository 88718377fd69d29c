package tunnel

import "errors"

var (
	ErrAgentLaunchFailed   = errors.New("tunnel: agent launch failed")
	ErrProtocolViolation   = errors.New("tunnel: agent result payload violates contract")
	ErrAuthOrConnectFailed = errors.New("tunnel: agent reported connect failure")
	ErrAgentTimeout        = errors.New("tunnel: agent invocation timed out")
	ErrBusy                = errors.New("tunnel: toggle already in flight")
)
