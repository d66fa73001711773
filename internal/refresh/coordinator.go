package refresh

import (
	"context"
	"time"

	"cartrules/internal/cart"
	"cartrules/pkg/logging"
)

// DefaultSuppressionWindow is how long change signals are ignored after the
// engine refreshed the host.
const DefaultSuppressionWindow = time.Second

// Message types broadcast to host pages.
const (
	TypeRefresh = "cart:refresh"
	TypeUpdated = "cart:updated"
	TypeCount   = "cart:count"
)

// Message is one notification for host pages.
type Message struct {
	Type      string         `json:"type"`
	Cart      *cart.Snapshot `json:"cart,omitempty"`
	ItemCount *int           `json:"itemCount,omitempty"`
}

// Broadcaster delivers messages to every connected host page.
type Broadcaster interface {
	Broadcast(Message)
}

// Suppressor arms the self-trigger suppression window. ArmSuppression reports
// false when a window is already active; an active window is never extended.
type Suppressor interface {
	ArmSuppression(d time.Duration) bool
}

// Coordinator notifies host pages after the engine modified the cart.
type Coordinator struct {
	cart       cart.Reader
	out        Broadcaster
	suppressor Suppressor
	window     time.Duration
}

// NewCoordinator creates a refresh coordinator. A zero window uses
// DefaultSuppressionWindow.
func NewCoordinator(reader cart.Reader, out Broadcaster, suppressor Suppressor, window time.Duration) *Coordinator {
	if window == 0 {
		window = DefaultSuppressionWindow
	}
	return &Coordinator{
		cart:       reader,
		out:        out,
		suppressor: suppressor,
		window:     window,
	}
}

// Refresh tells host pages to redraw their cart, pushes the fresh cart and its
// item count, and arms the suppression window. A failed re-read only skips the
// fresh-cart messages.
func (c *Coordinator) Refresh(ctx context.Context) {
	logging.Debug("Refresh", "Refreshing host cart presentation")

	c.out.Broadcast(Message{Type: TypeRefresh})

	snap, err := c.cart.Read(ctx)
	if err != nil {
		logging.Warn("Refresh", "Cart re-read for refresh failed: %v", err)
	} else {
		count := snap.ItemCount
		c.out.Broadcast(Message{Type: TypeUpdated, Cart: &snap})
		c.out.Broadcast(Message{Type: TypeCount, ItemCount: &count})
	}

	if c.suppressor.ArmSuppression(c.window) {
		logging.Debug("Refresh", "Suppressing change signals for %s", c.window)
	}
}
