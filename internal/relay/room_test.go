package relay

import "testing"

func TestRoomRemove(t *testing.T) {
	room := &Room{AdminID: "A", UserIDs: []string{"A", "B", "C"}}

	if empty := room.remove("B"); empty {
		t.Error("room with remaining members reported empty")
	}
	if room.contains("B") {
		t.Error("expected B to be removed")
	}
	if !room.contains("A") || !room.contains("C") {
		t.Errorf("unexpected members after removal: %v", room.UserIDs)
	}

	// Removing an absent id is a no-op.
	if empty := room.remove("B"); empty {
		t.Error("no-op removal reported empty")
	}

	room.remove("A")
	if empty := room.remove("C"); !empty {
		t.Error("expected the room to report empty after the last removal")
	}
}
