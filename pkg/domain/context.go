package domain

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// FrameworkData is the engine-owned region of a Context. Only the Stats map
// survives serialization; execution states and actor data are scoped to the
// current turn.
type FrameworkData struct {
	// ServiceStates holds the execution state of every component invoked
	// this turn, keyed by component path. Cleared at the end of every turn.
	ServiceStates *StateStore `json:"-"`

	// ActorData is scratch space for the actor collaborator (start and
	// fallback labels, intermediate nodes). Cleared at the end of every turn.
	ActorData map[string]any `json:"-"`

	// Stats accumulates telemetry across turns and is persisted.
	Stats map[string]any `json:"stats,omitempty"`
}

// ClearTurn drops everything scoped to the current turn.
func (f *FrameworkData) ClearTurn() {
	f.ServiceStates.Clear()
	f.ActorData = make(map[string]any)
}

// Context is the unit of conversation state: the full turn history of one
// dialog plus auxiliary and framework data.
//
// Exactly one Context instance is shared by every component invoked during a
// turn. History accessors are safe for concurrent use; entries in Misc must
// be written through SetMisc when siblings run concurrently.
type Context struct {
	mu sync.RWMutex

	// ID is the unique context identifier, generated when absent.
	ID string `json:"id"`

	// Labels is the history of dialog labels, keyed by turn index.
	Labels map[int]string `json:"labels"`

	// Requests is the history of user requests, keyed by turn index.
	Requests map[int]Message `json:"requests"`

	// Responses is the history of agent responses, keyed by turn index.
	Responses map[int]Message `json:"responses"`

	// Misc stores arbitrary user data. The engine never reads it.
	Misc map[string]any `json:"misc"`

	// FrameworkData is reserved for the engine and its collaborators.
	FrameworkData FrameworkData `json:"framework_data"`
}

// NewContext creates an empty context. An empty id is replaced with a
// generated UUID.
func NewContext(id string) *Context {
	if id == "" {
		id = uuid.NewString()
	}
	ctx := &Context{ID: id}
	ctx.init()
	return ctx
}

func (c *Context) init() {
	if c.Labels == nil {
		c.Labels = make(map[int]string)
	}
	if c.Requests == nil {
		c.Requests = make(map[int]Message)
	}
	if c.Responses == nil {
		c.Responses = make(map[int]Message)
	}
	if c.Misc == nil {
		c.Misc = make(map[string]any)
	}
	if c.FrameworkData.ServiceStates == nil {
		c.FrameworkData.ServiceStates = NewStateStore()
	}
	if c.FrameworkData.ActorData == nil {
		c.FrameworkData.ActorData = make(map[string]any)
	}
	if c.FrameworkData.Stats == nil {
		c.FrameworkData.Stats = make(map[string]any)
	}
}

// lastIndex returns the greatest turn index in a history map, or -1.
func lastIndex[V any](m map[int]V) int {
	last := -1
	for i := range m {
		if i > last {
			last = i
		}
	}
	return last
}

// AddRequest appends a request under the next turn index.
func (c *Context) AddRequest(req Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests[lastIndex(c.Requests)+1] = req
}

// AddResponse appends a response under the next turn index.
func (c *Context) AddResponse(resp Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses[lastIndex(c.Responses)+1] = resp
}

// AddLabel appends a dialog label under the next turn index.
func (c *Context) AddLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Labels[lastIndex(c.Labels)+1] = label
}

// LastRequest returns the most recent request, if any.
func (c *Context) LastRequest() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req, ok := c.Requests[lastIndex(c.Requests)]
	return req, ok
}

// LastResponse returns the most recent response, if any. An untouched
// response after a turn signals a failed actor step.
func (c *Context) LastResponse() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.Responses[lastIndex(c.Responses)]
	return resp, ok
}

// SetLastResponse replaces the most recent response in place. Used by
// post-services that rewrite the actor's output.
func (c *Context) SetLastResponse(resp Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := lastIndex(c.Responses)
	if last < 0 {
		last = 0
	}
	c.Responses[last] = resp
}

// LastLabel returns the most recent dialog label, or "" if the dialog has
// not advanced past the start label yet.
func (c *Context) LastLabel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Labels[lastIndex(c.Labels)]
}

// TurnCount returns the number of requests recorded so far.
func (c *Context) TurnCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Requests)
}

// SetMisc writes an auxiliary value. Safe for concurrent siblings;
// last write wins.
func (c *Context) SetMisc(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Misc[key] = value
}

// MiscValue reads an auxiliary value.
func (c *Context) MiscValue(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.Misc[key]
	return v, ok
}

// MergeMisc copies every entry of src into Misc.
func (c *Context) MergeMisc(src map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range src {
		c.Misc[k] = v
	}
}

// Clear deletes all history entries except the last keepLast turns.
// Misc is cleared entirely when listed in fields; by default only the
// request/response/label histories are pruned.
func (c *Context) Clear(keepLast int, fields ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(fields) == 0 {
		fields = []string{"requests", "responses", "labels"}
	}
	for _, f := range fields {
		switch f {
		case "requests":
			pruneHistory(c.Requests, keepLast)
		case "responses":
			pruneHistory(c.Responses, keepLast)
		case "labels":
			pruneHistory(c.Labels, keepLast)
		case "misc":
			c.Misc = make(map[string]any)
		}
	}
}

func pruneHistory[V any](m map[int]V, keepLast int) {
	cutoff := lastIndex(m) - keepLast
	for i := range m {
		if i <= cutoff {
			delete(m, i)
		}
	}
}

// contextJSON mirrors Context for serialization without the mutex.
type contextJSON struct {
	ID            string          `json:"id"`
	Labels        map[int]string  `json:"labels"`
	Requests      map[int]Message `json:"requests"`
	Responses     map[int]Message `json:"responses"`
	Misc          map[string]any  `json:"misc"`
	FrameworkData FrameworkData   `json:"framework_data"`
}

// MarshalJSON serializes the persistent fields of the context.
func (c *Context) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(contextJSON{
		ID:            c.ID,
		Labels:        c.Labels,
		Requests:      c.Requests,
		Responses:     c.Responses,
		Misc:          c.Misc,
		FrameworkData: c.FrameworkData,
	})
}

// UnmarshalJSON restores a context and reinitializes its transient fields.
func (c *Context) UnmarshalJSON(data []byte) error {
	var raw contextJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Labels = raw.Labels
	c.Requests = raw.Requests
	c.Responses = raw.Responses
	c.Misc = raw.Misc
	c.FrameworkData = raw.FrameworkData
	c.init()
	return nil
}
