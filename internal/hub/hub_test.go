package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case payload := <-c.send:
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	default:
		t.Fatal("expected a queued event")
		return nil
	}
}

func TestEmitReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	staff1 := NewClient(h, nil, 7, true)
	staff2 := NewClient(h, nil, 7, true)
	staff3 := NewClient(h, nil, 7, true)
	tracker := NewClient(h, nil, 7, false)
	for _, c := range []*Client{staff1, staff2, staff3, tracker} {
		h.Join(c)
	}

	h.Emit(7, AudienceAll, map[string]interface{}{"event": "order_advanced", "order_id": float64(41)})

	for _, c := range []*Client{staff1, staff2, staff3, tracker} {
		event := drain(t, c)
		assert.Equal(t, "order_advanced", event["event"])
		assert.Equal(t, float64(41), event["order_id"])
	}
}

func TestEmitStaffAudienceSkipsTrackers(t *testing.T) {
	h := NewHub()
	staff := NewClient(h, nil, 3, true)
	tracker := NewClient(h, nil, 3, false)
	h.Join(staff)
	h.Join(tracker)

	h.Emit(3, AudienceStaff, map[string]interface{}{"event": "low_stock", "item_name": "Tacos"})

	event := drain(t, staff)
	assert.Equal(t, "low_stock", event["event"])
	assert.Empty(t, tracker.send)
}

func TestEmitScopedToShiftRoom(t *testing.T) {
	h := NewHub()
	inRoom := NewClient(h, nil, 1, true)
	otherRoom := NewClient(h, nil, 2, true)
	h.Join(inRoom)
	h.Join(otherRoom)

	h.Emit(1, AudienceAll, map[string]interface{}{"event": "new_order"})

	assert.Len(t, inRoom.send, 1)
	assert.Empty(t, otherRoom.send)
}

func TestEmitToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	h.Emit(99, AudienceAll, map[string]interface{}{"event": "pause"})

	staff, trackers := h.SubscriberCounts(99)
	assert.Zero(t, staff)
	assert.Zero(t, trackers)
}

func TestStalledSubscriberIsDropped(t *testing.T) {
	h := NewHub()
	slow := NewClient(h, nil, 5, true)
	healthy := NewClient(h, nil, 5, true)
	h.Join(slow)
	h.Join(healthy)

	// Fill the slow client's queue so the next emit cannot be enqueued.
	for i := 0; i < sendQueueSize; i++ {
		require.True(t, slow.enqueue([]byte("{}")))
	}

	h.Emit(5, AudienceAll, map[string]interface{}{"event": "order_hold"})

	staff, _ := h.SubscriberCounts(5)
	assert.Equal(t, 1, staff)
	assert.Len(t, healthy.send, 1)

	// The dropped client's queue is closed after its backlog drains.
	for i := 0; i < sendQueueSize; i++ {
		<-slow.send
	}
	_, open := <-slow.send
	assert.False(t, open)
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, 4, false)
	h.Join(c)

	h.Leave(c)
	h.Leave(c)

	_, trackers := h.SubscriberCounts(4)
	assert.Zero(t, trackers)
}

func TestKeepaliveEnqueuesPong(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, 8, true)
	h.Join(c)

	require.True(t, c.enqueue([]byte("pong")))
	assert.Equal(t, "pong", string(<-c.send))
}
