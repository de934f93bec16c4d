package ports

import "github.com/tdex-network/gdk-electrum/internal/core/domain"

// Notifier delivers notifications to the user interface. Notify must not
// block.
type Notifier interface {
	Notify(notification domain.Notification)
}
