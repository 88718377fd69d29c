// Package tunnel owns the Ghost Connect lifecycle.
//
// Ownership boundary:
// - the single TunnelState value
//
// - the serialized invoke-parse-update toggle sequence
//
// - classification of agent failures into the error taxonomy
//
// Failure posture is asymmetric: connect is validated fail-closed (the
// caller is never told the tunnel is up unless the agent said so), stop is
// best-effort (the caller can always consider the tunnel logically down).
//
// tunnel does not own authentication or transport; the agent does.
package tunnel
