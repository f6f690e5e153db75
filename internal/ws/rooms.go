package ws

import (
	"sort"
	"sync"
)

type activeRoom struct {
	room   string
	userID int64
}

// RoomTable owns room membership. Member sets are refcounted per connection,
// so a user with several live connections stays a member until the last one
// leaves. Each connection is in at most one room at a time: joining a room
// implicitly leaves the previous one.
//
// The default room is pinned and survives becoming empty; any other room is
// evicted once its member set drains.
type RoomTable struct {
	mu          sync.Mutex
	defaultRoom string
	members     map[string]map[int64]int // room -> userID -> live connection count
	active      map[string]activeRoom    // connID -> current room
}

func NewRoomTable(defaultRoom string) *RoomTable {
	t := &RoomTable{
		defaultRoom: defaultRoom,
		members:     make(map[string]map[int64]int),
		active:      make(map[string]activeRoom),
	}
	t.members[defaultRoom] = make(map[int64]int)
	return t
}

// Join moves the connection into room, leaving its previous room first.
// Returns the previous room ("" if none) and the member ids that were
// already in the target room before this join.
func (t *RoomTable) Join(connID string, userID int64, room string) (prevRoom string, prior []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if a, ok := t.active[connID]; ok {
		t.leaveLocked(a.userID, a.room)
		prevRoom = a.room
	}

	prior = t.memberIDsLocked(room)
	set, ok := t.members[room]
	if !ok {
		set = make(map[int64]int)
		t.members[room] = set
	}
	set[userID]++
	t.active[connID] = activeRoom{room: room, userID: userID}
	return prevRoom, prior
}

// Leave removes the connection's membership in room. Returns false when the
// connection was not a member there.
func (t *RoomTable) Leave(connID string, userID int64, room string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.active[connID]
	if !ok || a.room != room {
		return false
	}
	delete(t.active, connID)
	return t.leaveLocked(userID, room)
}

// DropConnection handles disconnect: leaves whatever room the connection is
// in. Returns the room and user it left, if any.
func (t *RoomTable) DropConnection(connID string) (room string, userID int64, left bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.active[connID]
	if !ok {
		return "", 0, false
	}
	delete(t.active, connID)
	return a.room, a.userID, t.leaveLocked(a.userID, a.room)
}

// MembersOf returns the user ids in the room, sorted for stable fan-out.
// Unknown or evicted rooms yield an empty slice.
func (t *RoomTable) MembersOf(room string) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.memberIDsLocked(room)
}

// ActiveRoomOf returns the room the connection currently occupies.
func (t *RoomTable) ActiveRoomOf(connID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.active[connID]
	return a.room, ok
}

func (t *RoomTable) leaveLocked(userID int64, room string) bool {
	set, ok := t.members[room]
	if !ok {
		return false
	}
	n, ok := set[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(set, userID)
	} else {
		set[userID] = n - 1
	}
	if len(set) == 0 && room != t.defaultRoom {
		delete(t.members, room)
	}
	return true
}

func (t *RoomTable) memberIDsLocked(room string) []int64 {
	set := t.members[room]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
