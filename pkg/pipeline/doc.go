// Package pipeline implements the conversational-agent execution engine: a
// tree of services and service groups that processes one user request per
// turn against a shared dialog context.
//
// Components are either leaf services wrapping a user handler, or service
// groups holding an ordered list of child components. Groups run their
// children sequentially by default, or concurrently when marked
// asynchronous; an asynchronous component may also carry a timeout that
// cancels its whole subtree. Every component records its lifecycle
// (NOT_RUN, RUNNING, FINISHED, FAILED) in the context's per-turn state
// store, and a failing component never aborts its siblings or the turn.
//
// The Pipeline ties the tree to the outside world: it loads the context
// from a ports.ContextStore, runs the root group (pre-services, the dialog
// actor, post-services), clears the turn-scoped state and persists the
// context back.
package pipeline
