package clipboard

import "clipboard-sync/pkg/types"

// Monitor watches the system clipboard and can write back to it.
type Monitor interface {
	Start() error
	Stop() error
	OnChange(handler func(types.Item))
	SetContent(item types.Item) error
}
