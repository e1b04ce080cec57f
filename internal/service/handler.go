package service

import "clipboard-sync/pkg/types"

// Change kinds delivered to handlers
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventTrashed  = "trashed"
	EventRestored = "restored"
	EventDeleted  = "deleted"
	EventShared   = "shared"
	EventUnshared = "unshared"
)

// ChangeEvent describes one mutation. Item is nil for deletions.
type ChangeEvent struct {
	Kind   string      `json:"kind"`
	ItemID string      `json:"item_id"`
	Item   *types.Item `json:"item,omitempty"`
}

// ChangeHandler is implemented by components that need to be notified of item changes
type ChangeHandler interface {
	HandleItemChange(event ChangeEvent)
}

// ChangeHandlerFunc adapts a function to ChangeHandler.
type ChangeHandlerFunc func(ChangeEvent)

func (f ChangeHandlerFunc) HandleItemChange(event ChangeEvent) { f(event) }
