package relay

// Room tracks the admitted members of one call. A room exists only
// while UserIDs is non-empty; the admin is always one of the members.
type Room struct {
	// AdminID is the member that approves or rejects join requests.
	AdminID string

	// UserIDs holds the admitted members in admission order.
	UserIDs []string
}

// remove deletes id from UserIDs if present and reports whether the
// room is now empty.
func (r *Room) remove(id string) bool {
	for i, uid := range r.UserIDs {
		if uid == id {
			r.UserIDs = append(r.UserIDs[:i], r.UserIDs[i+1:]...)
			break
		}
	}
	return len(r.UserIDs) == 0
}

// contains reports whether id is an admitted member.
func (r *Room) contains(id string) bool {
	for _, uid := range r.UserIDs {
		if uid == id {
			return true
		}
	}
	return false
}
