package hub

import (
	"encoding/json"
	"sync"

	"fusionx_backend/pkg/utils"
)

// Audience selects which subscriber group of a shift room receives an event.
type Audience int

const (
	// AudienceAll delivers to staff and customer-facing screens alike.
	AudienceAll Audience = iota
	// AudienceStaff delivers to kitchen display subscribers only.
	AudienceStaff
)

// Hub fans events out to websocket subscribers grouped per shift. Staff
// subscribers (kitchen displays) and tracker subscribers (customer pickup
// screens) share a room but can be addressed separately.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]*room
}

type room struct {
	mu       sync.Mutex
	staff    map[*Client]struct{}
	trackers map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]*room)}
}

func (h *Hub) getOrCreateRoom(shiftID int64) *room {
	h.mu.RLock()
	rm, ok := h.rooms[shiftID]
	h.mu.RUnlock()
	if ok {
		return rm
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if rm, ok = h.rooms[shiftID]; ok {
		return rm
	}
	rm = &room{
		staff:    make(map[*Client]struct{}),
		trackers: make(map[*Client]struct{}),
	}
	h.rooms[shiftID] = rm
	return rm
}

// Join registers a client in its shift room.
func (h *Hub) Join(c *Client) {
	rm := h.getOrCreateRoom(c.shiftID)
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c.staff {
		rm.staff[c] = struct{}{}
	} else {
		rm.trackers[c] = struct{}{}
	}
}

// Leave removes a client from its shift room and closes its send queue.
// Safe to call more than once.
func (h *Hub) Leave(c *Client) {
	h.mu.RLock()
	rm, ok := h.rooms[c.shiftID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c.staff {
		if _, present := rm.staff[c]; present {
			delete(rm.staff, c)
			close(c.send)
		}
	} else {
		if _, present := rm.trackers[c]; present {
			delete(rm.trackers, c)
			close(c.send)
		}
	}
}

// Emit broadcasts an event to the shift room. A subscriber whose send queue
// is full is dropped rather than allowed to stall the broadcast.
func (h *Hub) Emit(shiftID int64, audience Audience, event map[string]interface{}) {
	h.mu.RLock()
	rm, ok := h.rooms[shiftID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		utils.LogError(err, "marshaling hub event")
		return
	}

	var stalled []*Client
	rm.mu.Lock()
	for c := range rm.staff {
		if !c.enqueue(payload) {
			stalled = append(stalled, c)
		}
	}
	if audience == AudienceAll {
		for c := range rm.trackers {
			if !c.enqueue(payload) {
				stalled = append(stalled, c)
			}
		}
	}
	for _, c := range stalled {
		if c.staff {
			delete(rm.staff, c)
		} else {
			delete(rm.trackers, c)
		}
		close(c.send)
	}
	rm.mu.Unlock()
}

// Broadcast delivers an event to every subscriber of the shift room.
func (h *Hub) Broadcast(shiftID int64, event map[string]interface{}) {
	h.Emit(shiftID, AudienceAll, event)
}

// BroadcastStaff delivers an event to kitchen display subscribers only.
func (h *Hub) BroadcastStaff(shiftID int64, event map[string]interface{}) {
	h.Emit(shiftID, AudienceStaff, event)
}

// SubscriberCounts reports the current staff and tracker subscriber counts
// for a shift room.
func (h *Hub) SubscriberCounts(shiftID int64) (staff, trackers int) {
	h.mu.RLock()
	rm, ok := h.rooms[shiftID]
	h.mu.RUnlock()
	if !ok {
		return 0, 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.staff), len(rm.trackers)
}
