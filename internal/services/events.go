package services

// EventSink receives realtime events for fan-out to websocket subscribers.
// Satisfied by the hub; decoupled here so services stay testable without a
// live socket layer.
type EventSink interface {
	// Broadcast delivers to every subscriber of the shift room.
	Broadcast(shiftID int64, event map[string]interface{})
	// BroadcastStaff delivers to kitchen display subscribers only.
	BroadcastStaff(shiftID int64, event map[string]interface{})
}

// Notifier queues out-of-band staff notifications (push/SMS) for events that
// matter beyond the kitchen display.
type Notifier interface {
	NotifyLowStock(shiftID int64, itemName string, stockCount *int)
	NotifyNewOrder(shiftID, orderID int64)
}

// NopEventSink discards all events.
type NopEventSink struct{}

func (NopEventSink) Broadcast(int64, map[string]interface{})      {}
func (NopEventSink) BroadcastStaff(int64, map[string]interface{}) {}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyLowStock(int64, string, *int) {}
func (NopNotifier) NotifyNewOrder(int64, int64)        {}
