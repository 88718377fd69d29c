// Package agent owns the boundary to the external Ghost Connect agent.
//
// Ownership boundary:
// - agent process invocation (local exec, remote ssh)
//
// - result payload decoding
//
// The agent performs ZKP authentication and tunnel setup/teardown on its own;
// this package only carries directives in and structured results out.
//
// agent does not own tunnel state.
package agent
