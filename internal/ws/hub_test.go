package ws

import (
	"encoding/json"
	"testing"
)

func TestPublishFanout(t *testing.T) {
	h := NewHub()

	a := &Client{address: "0xaaa", hub: h, send: make(chan []byte, 4)}
	b := &Client{address: "0xaaa", hub: h, send: make(chan []byte, 4)}
	other := &Client{address: "0xbbb", hub: h, send: make(chan []byte, 4)}
	h.register(a)
	h.register(b)
	h.register(other)

	h.Publish(Event{Type: EventLevelUp, Address: "0xaaa", Payload: map[string]int{"new_level": 4}})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			var e Event
			if err := json.Unmarshal(msg, &e); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if e.Type != EventLevelUp {
				t.Fatalf("unexpected type %s", e.Type)
			}
		default:
			t.Fatal("client for address did not receive event")
		}
	}

	select {
	case <-other.send:
		t.Fatal("event leaked to another address")
	default:
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	c := &Client{address: "0xaaa", hub: h, send: make(chan []byte, 1)}
	h.register(c)
	if got := h.Connected("0xaaa"); got != 1 {
		t.Fatalf("Connected = %d, want 1", got)
	}

	h.unregister(c)
	if got := h.Connected("0xaaa"); got != 0 {
		t.Fatalf("Connected after unregister = %d, want 0", got)
	}

	h.Publish(Event{Type: EventXPGranted, Address: "0xaaa"})
	select {
	case <-c.send:
		t.Fatal("unregistered client received event")
	default:
	}
}
