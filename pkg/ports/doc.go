// Package ports defines the boundary interfaces of the pipeline engine:
// context persistence and messenger transports. Adapters implementing these
// contracts live under pkg/adapters.
package ports
