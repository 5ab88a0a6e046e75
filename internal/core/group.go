package core

import "sort"

// Group tracks every message admitted at one priority: the running byte
// total, an optional per-group cap, and the member ids in ascending
// (oldest-first) order. All members share Priority.
type Group struct {
	Priority     uint32
	ByteSize     uint64
	MaxByteSize  *uint64
	members      []Id     // ascending: oldest first
	sizeByMember []uint64 // parallel to members
}

// newGroup creates an empty group at priority, applying a cap if defaults
// names one. Defaults only take effect at creation time; see
// Store.UpdateGroupDefaults for reconciling an existing group.
func newGroup(priority uint32, defaults *GroupDefaults) *Group {
	g := &Group{Priority: priority}
	if defaults != nil && defaults.MaxByteSize != nil {
		cap := *defaults.MaxByteSize
		g.MaxByteSize = &cap
	}
	return g
}

// empty reports whether the group holds no members; empty groups are never
// kept in Store.groups.
func (g *Group) empty() bool {
	return len(g.members) == 0
}

// oldest returns the oldest member (first in ascending order), if any.
func (g *Group) oldest() (Id, bool) {
	if len(g.members) == 0 {
		return Id{}, false
	}
	return g.members[0], true
}

// newest returns the newest member (last in ascending order), if any.
func (g *Group) newest() (Id, bool) {
	if len(g.members) == 0 {
		return Id{}, false
	}
	return g.members[len(g.members)-1], true
}

// insert adds id with byteSize, keeping members in ascending order.
func (g *Group) insert(id Id, byteSize uint64) {
	i := sort.Search(len(g.members), func(i int) bool {
		return id.Less(g.members[i])
	})
	g.members = append(g.members, Id{})
	copy(g.members[i+1:], g.members[i:])
	g.members[i] = id

	g.sizeByMember = append(g.sizeByMember, 0)
	copy(g.sizeByMember[i+1:], g.sizeByMember[i:])
	g.sizeByMember[i] = byteSize

	g.ByteSize += byteSize
}

// remove deletes id from the group, returning its byte size and whether it
// was present. Idempotent: removing an absent id is a no-op.
func (g *Group) remove(id Id) (uint64, bool) {
	for i, member := range g.members {
		if member == id {
			size := g.sizeByMember[i]
			g.members = append(g.members[:i], g.members[i+1:]...)
			g.sizeByMember = append(g.sizeByMember[:i], g.sizeByMember[i+1:]...)
			g.ByteSize -= size
			return size, true
		}
	}
	return 0, false
}

// removeOldest pops the oldest member, returning its id and byte size.
func (g *Group) removeOldest() (Id, uint64, bool) {
	if len(g.members) == 0 {
		return Id{}, 0, false
	}
	id := g.members[0]
	size := g.sizeByMember[0]
	g.members = g.members[1:]
	g.sizeByMember = g.sizeByMember[1:]
	g.ByteSize -= size
	return id, size, true
}

// ids returns a copy of the member ids in ascending (oldest-first) order.
func (g *Group) ids() []Id {
	out := make([]Id, len(g.members))
	copy(out, g.members)
	return out
}

// GroupDefaults records the per-priority defaults applied to a group at
// the moment it is created.
type GroupDefaults struct {
	MaxByteSize *uint64
}
