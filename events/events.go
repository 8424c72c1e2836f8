package events

import (
	"context"
	"fmt"
	"time"

	"github.com/orderly/livefeed"
)

// Event types published by the backend.
const (
	TypeNewOrder           = "new_order"
	TypeOrderStatusChanged = "order_status_changed"
)

// RefreshTimeout bounds a single data refresh triggered by an event.
const RefreshTimeout = 10 * time.Second

// NewOrder is the payload of a new_order event.
type NewOrder struct {
	Type         string `json:"type"`
	OrderID      string `json:"orderId,omitempty"`
	OrderNumber  string `json:"orderNumber"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

// OrderStatusChanged is the payload of an order_status_changed event.
type OrderStatusChanged struct {
	Type        string `json:"type"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Status      string `json:"status"`
}

// Refresher reloads state from the REST data layer after an event.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Notifier shows a transient, user-facing notice.
type Notifier interface {
	Notify(text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(text string)

func (f NotifierFunc) Notify(text string) {
	f(text)
}

// BindOrderFeed registers the restaurant order-feed handlers on d:
// new_order refreshes the queue and shows a notice, order_status_changed only
// refreshes. notifier may be nil.
func BindOrderFeed(ctx context.Context, d *Dispatcher, refresher Refresher, notifier Notifier) error {
	if refresher == nil {
		return fmt.Errorf("order feed: refresher is nil")
	}

	err := d.Handle(TypeNewOrder, func(msg *livefeed.Message) error {
		var ev NewOrder
		if err := msg.Decode(&ev); err != nil {
			return fmt.Errorf("decode %s: %w", TypeNewOrder, err)
		}
		if err := refresh(ctx, refresher); err != nil {
			return err
		}
		if notifier != nil {
			notifier.Notify(NewOrderNotice(ev))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return d.Handle(TypeOrderStatusChanged, func(msg *livefeed.Message) error {
		var ev OrderStatusChanged
		if err := msg.Decode(&ev); err != nil {
			return fmt.Errorf("decode %s: %w", TypeOrderStatusChanged, err)
		}
		return refresh(ctx, refresher)
	})
}

// BindNotificationFeed makes every event on a user notification feed
// refresh the notification list.
func BindNotificationFeed(ctx context.Context, d *Dispatcher, refresher Refresher) error {
	if refresher == nil {
		return fmt.Errorf("notification feed: refresher is nil")
	}
	d.HandleDefault(func(*livefeed.Message) error {
		return refresh(ctx, refresher)
	})
	return nil
}

// NewOrderNotice is the text shown when a new order arrives.
func NewOrderNotice(ev NewOrder) string {
	if ev.OrderNumber == "" {
		return "New order received"
	}
	return "New order #" + ev.OrderNumber
}

func refresh(ctx context.Context, r Refresher) error {
	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()
	if err := r.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}
