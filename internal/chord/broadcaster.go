package chord

import (
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Ring update event types
const (
	EventNodeJoin     = "node_join"
	EventNodeLeave    = "node_leave"
	EventKeysMigrated = "keys_migrated"
)

// RingUpdateBroadcaster is an interface for broadcasting ring updates.
// This allows the Ring to notify external systems (like WebSocket clients)
// when membership changes without creating circular dependencies.
type RingUpdateBroadcaster interface {
	// BroadcastRingUpdate sends a ring update notification.
	// The update parameter can be any data structure that will be serialized and sent.
	BroadcastRingUpdate(update any) error
}

// RingUpdateEvent represents a ring membership change event.
type RingUpdateEvent struct {
	ID        string `json:"id"`             // Unique, time-sortable event id
	Type      string `json:"type"`           // "node_join", "node_leave", "keys_migrated"
	NodeID    int    `json:"node_id"`        // ID of the node that triggered the event
	Timestamp int64  `json:"timestamp"`      // Unix timestamp
	Message   string `json:"message"`        // Human-readable message
	From      *int   `json:"from,omitempty"` // Migration source
	To        *int   `json:"to,omitempty"`   // Migration destination
	Keys      []int  `json:"keys,omitempty"` // Migrated keys
}

func newRingUpdateEvent(eventType string, nodeID int, message string) RingUpdateEvent {
	return RingUpdateEvent{
		ID:        xid.New().String(),
		Type:      eventType,
		NodeID:    nodeID,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
}

func newMigrationEvent(report MigrationReport) RingUpdateEvent {
	from, to := report.From, report.To
	e := newRingUpdateEvent(EventKeysMigrated, to,
		fmt.Sprintf("%d keys moved from node %d to node %d", len(report.Keys), from, to))
	e.From = &from
	e.To = &to
	e.Keys = append([]int(nil), report.Keys...)
	return e
}
