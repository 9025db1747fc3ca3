package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
)

const (
	commandChannelBufferSize = 16
	commandSendTimeout       = 5 * time.Second
)

// connectedAgent holds the command channel and metadata for a connected agent.
type connectedAgent struct {
	ch          chan *collectorv1.Command
	version     string
	connectedAt time.Time
}

// ConnectedAgentInfo is a read-only snapshot of a connected agent's metadata.
type ConnectedAgentInfo struct {
	ClientID    string
	Version     string
	ConnectedAt time.Time
}

// CommandRegistry manages in-memory command channels for connected agents.
type CommandRegistry struct {
	mu     sync.RWMutex
	agents map[string]*connectedAgent
}

// NewCommandRegistry creates a new CommandRegistry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		agents: make(map[string]*connectedAgent),
	}
}

// Register creates a buffered channel for the given agent.
// If one already exists, it is closed first so the stale stream returns.
func (r *CommandRegistry) Register(clientID, version string) <-chan *collectorv1.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.agents[clientID]; ok {
		close(old.ch)
	}
	ch := make(chan *collectorv1.Command, commandChannelBufferSize)
	r.agents[clientID] = &connectedAgent{
		ch:          ch,
		version:     version,
		connectedAt: time.Now(),
	}
	return ch
}

// Unregister closes and removes the channel for the given agent. It is a
// no-op when ch has already been replaced by a newer registration.
func (r *CommandRegistry) Unregister(clientID string, ch <-chan *collectorv1.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[clientID]
	if !ok || (<-chan *collectorv1.Command)(a.ch) != ch {
		return
	}
	close(a.ch)
	delete(r.agents, clientID)
}

// Send sends a command to a connected agent.
// Returns an error if the agent is not connected or the channel stays full.
func (r *CommandRegistry) Send(clientID string, cmd *collectorv1.Command) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[clientID]
	if !ok {
		return fmt.Errorf("agent %s not connected", clientID)
	}

	// The read lock keeps the channel open for the duration of the send.
	select {
	case a.ch <- cmd:
		return nil
	case <-time.After(commandSendTimeout):
		return fmt.Errorf("timeout sending command to agent %s", clientID)
	}
}

// IsConnected checks whether an agent has an active channel.
func (r *CommandRegistry) IsConnected(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[clientID]
	return ok
}

// Len returns the number of connected agents.
func (r *CommandRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// ListConnected returns a snapshot of all currently connected agents,
// ordered by client ID.
func (r *CommandRegistry) ListConnected() []ConnectedAgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ConnectedAgentInfo, 0, len(r.agents))
	for id, a := range r.agents {
		result = append(result, ConnectedAgentInfo{
			ClientID:    id,
			Version:     a.version,
			ConnectedAt: a.connectedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClientID < result[j].ClientID })
	return result
}
