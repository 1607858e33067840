package logging

import (
	"sync"

	"github.com/forgebuild/forge/message"
)

// Collector provides thread-safe in-memory storage of activity records,
// grouped by action name. Frontends use it to show per-job history and
// tests use it to assert on what reached the upstream handler. Records
// with no action name are grouped under the empty key.
type Collector struct {
	mu      sync.RWMutex
	records map[string][]*message.Message
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		records: make(map[string][]*message.Message),
	}
}

// Handle stores one record. It satisfies the messenger Handler shape so
// a Collector can be installed directly as the upstream handler.
func (c *Collector) Handle(msg *message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[msg.ActionName] = append(c.records[msg.ActionName], msg)
}

// Records returns a copy of the records stored for an action name.
func (c *Collector) Records(actionName string) []*message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records, ok := c.records[actionName]
	if !ok {
		return nil
	}
	out := make([]*message.Message, len(records))
	copy(out, records)
	return out
}

// All returns a copy of all stored records grouped by action name.
func (c *Collector) All() map[string][]*message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]*message.Message, len(c.records))
	for action, records := range c.records {
		cp := make([]*message.Message, len(records))
		copy(cp, records)
		out[action] = cp
	}
	return out
}

// Clear drops all stored records.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string][]*message.Message)
}
