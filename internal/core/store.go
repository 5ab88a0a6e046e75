package core

import (
	"sort"
	"sync"
)

// StoreDefaults is the store-wide cap, mirroring GroupDefaults one level up.
type StoreDefaults struct {
	MaxByteSize *uint64
}

// AddResult reports the id minted for a successful Add/AddWithId call along
// with everything that was burned to make room for it. MsgsRemoved is in
// eviction order: group-cap evictions from the target group first, then
// store-cap evictions in ascending priority, oldest first within each priority.
type AddResult struct {
	Id           Id
	BytesRemoved uint64
	GroupsRemoved []uint32
	MsgsRemoved  []Id
}

// Store owns every priority group, the global byte budget, and the id
// generator. All public methods hold mu for their full duration; no
// blocking I/O may happen while mu is held (§5).
type Store struct {
	mu sync.Mutex

	byteSize    uint64
	maxByteSize *uint64

	groupDefaults map[uint32]GroupDefaults
	groups        map[uint32]*Group
	idToPriority  map[Id]uint32

	ids *IdGenerator
}

// NewStore creates an empty store. node is the identifier generator's node
// component (see internal/nodeid).
func NewStore(node uint16) *Store {
	return &Store{
		groupDefaults: make(map[uint32]GroupDefaults),
		groups:        make(map[uint32]*Group),
		idToPriority:  make(map[Id]uint32),
		ids:           NewIdGenerator(node),
	}
}

// ByteSize returns the current total byte size held across all groups.
func (s *Store) ByteSize() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byteSize
}

// Add mints a new id for a byteSize-byte message at priority, admitting it
// if the store and group budgets allow, evicting lower-priority or older
// messages as needed. Failed admissions leave the store unchanged.
func (s *Store) Add(priority uint32, byteSize uint64) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids.Next(priority)
	return s.commit(id, byteSize)
}

// AddWithId is identical to Add but uses a caller-supplied id (its
// Priority field determines the group), for replaying a durable backend's
// contents at startup.
func (s *Store) AddWithId(id Id, byteSize uint64) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(id, byteSize)
}

// commit runs the admission algorithm in §4.2 under mu. It must only be
// called with mu held.
func (s *Store) commit(id Id, byteSize uint64) (AddResult, error) {
	priority := id.Priority

	// Step 1: store-cap precheck.
	if s.maxByteSize != nil && byteSize > *s.maxByteSize {
		return AddResult{}, &Error{Kind: KindExceedsStoreMax, Op: "Add"}
	}

	// Step 2: materialize target group (working-group pattern: remove for
	// the duration of admission, reinsert on every path).
	group, existed := s.groups[priority]
	delete(s.groups, priority)
	if !existed {
		defaults, hasDefaults := s.groupDefaults[priority]
		if hasDefaults {
			group = newGroup(priority, &defaults)
		} else {
			group = newGroup(priority, nil)
		}
	}

	// Step 3: group-cap precheck.
	if group.MaxByteSize != nil && byteSize > *group.MaxByteSize {
		s.groups[priority] = group
		return AddResult{}, &Error{Kind: KindExceedsGroupMax, Op: "Add"}
	}

	// Step 4: priority precheck — higher-or-equal priority traffic is
	// never evicted to admit a lower-priority message.
	if s.maxByteSize != nil {
		higherTotal := s.totalAtOrAbove(priority)
		if higherTotal+byteSize > *s.maxByteSize {
			s.groups[priority] = group
			return AddResult{}, &Error{Kind: KindLacksPriority, Op: "Add"}
		}
	}

	result := AddResult{Id: id}

	// Step 5: group prune.
	if group.MaxByteSize != nil {
		for group.ByteSize+byteSize > *group.MaxByteSize {
			oldID, size, ok := group.removeOldest()
			if !ok {
				break
			}
			delete(s.idToPriority, oldID)
			s.byteSize -= size
			result.BytesRemoved += size
			result.MsgsRemoved = append(result.MsgsRemoved, oldID)
		}
	}

	// Step 6: store prune — ascending priority order, oldest first within
	// each group, never touching a group above priority (guarded by step 4);
	// the target group itself is a candidate at its own priority.
	// s.byteSize already includes the working group's current bytes (it was
	// only removed from the groups map, not subtracted from the running
	// total), so the incoming byteSize is the only term to add.
	if s.maxByteSize != nil {
		for s.byteSize+byteSize > *s.maxByteSize {
			victim, victimPriority, found := s.lowestNonEmptyBelow(priority, group)
			if !found {
				break
			}
			oldID, size, ok := victim.removeOldest()
			if !ok {
				break
			}
			delete(s.idToPriority, oldID)
			s.byteSize -= size
			result.BytesRemoved += size
			result.MsgsRemoved = append(result.MsgsRemoved, oldID)
			if victim.empty() && victimPriority != priority {
				delete(s.groups, victimPriority)
				result.GroupsRemoved = append(result.GroupsRemoved, victimPriority)
			}
		}
	}

	// Step 7: commit.
	group.insert(id, byteSize)
	s.groups[priority] = group
	s.idToPriority[id] = priority
	s.byteSize += byteSize

	return result, nil
}

// totalAtOrAbove sums byte sizes across groups strictly above priority. The
// target group itself is excluded: it has already been removed from
// s.groups for the duration of admission (the working-group pattern), and
// its own bytes must never count toward the "higher priority" total that
// guards it against eviction.
func (s *Store) totalAtOrAbove(priority uint32) uint64 {
	var total uint64
	for p, g := range s.groups {
		if p >= priority {
			total += g.ByteSize
		}
	}
	return total
}

// lowestNonEmptyBelow returns the lowest-priority non-empty group with
// priority <= guardPriority, considering the in-flight working group too.
func (s *Store) lowestNonEmptyBelow(guardPriority uint32, working *Group) (*Group, uint32, bool) {
	best := int64(-1)
	var bestGroup *Group
	if working.Priority <= guardPriority && !working.empty() {
		best = int64(working.Priority)
		bestGroup = working
	}
	for p, g := range s.groups {
		if p > guardPriority || g.empty() {
			continue
		}
		if best == -1 || int64(p) < best {
			best = int64(p)
			bestGroup = g
		}
	}
	if bestGroup == nil {
		return nil, 0, false
	}
	return bestGroup, uint32(best), true
}

// Del removes id if present, adjusting group and store totals. Deleting an
// absent id is a no-op and not an error.
func (s *Store) Del(id Id) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	priority, ok := s.idToPriority[id]
	if !ok {
		return nil
	}
	group, ok := s.groups[priority]
	if !ok {
		return &Error{Kind: KindSync, Op: "Del", Context: "group missing for indexed id"}
	}
	size, removed := group.remove(id)
	if !removed {
		return &Error{Kind: KindSync, Op: "Del", Context: "id missing from its group"}
	}
	delete(s.idToPriority, id)
	s.byteSize -= size
	if group.empty() {
		delete(s.groups, priority)
	}
	return nil
}

// DelGroup removes every member at priority in one operation, returning
// the ids that were removed so callers can clean up the durable backend
// and file store.
func (s *Store) DelGroup(priority uint32) []Id {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[priority]
	if !ok {
		return nil
	}
	ids := group.ids()
	for _, id := range ids {
		delete(s.idToPriority, id)
	}
	s.byteSize -= group.ByteSize
	delete(s.groups, priority)
	return ids
}

// Get locates a single id per §4.2's three-way lookup:
//   - id given: return it iff present.
//   - priority given: newest member of that group (reverse=false) or
//     oldest (reverse=true).
//   - neither given: newest within the highest-priority group
//     (reverse=false) or oldest within the lowest-priority group
//     (reverse=true).
func (s *Store) Get(id *Id, priority *uint32, reverse bool) (Id, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != nil {
		if _, ok := s.idToPriority[*id]; ok {
			return *id, true
		}
		return Id{}, false
	}

	if priority != nil {
		group, ok := s.groups[*priority]
		if !ok {
			return Id{}, false
		}
		if reverse {
			return group.oldest()
		}
		return group.newest()
	}

	var target uint32
	found := false
	for p := range s.groups {
		if !found || (reverse && p < target) || (!reverse && p > target) {
			target = p
			found = true
		}
	}
	if !found {
		return Id{}, false
	}
	group := s.groups[target]
	if reverse {
		return group.oldest()
	}
	return group.newest()
}

// GetN returns up to n ids from the global index, filtered by priority <=
// startingPriority (if set) and positioned after afterId (if set), walked
// in dispatch order (reverse=false, highest priority/oldest first) or the
// opposite direction (reverse=true).
func (s *Store) GetN(n int, startingPriority *uint32, afterId *Id, reverse bool) []Id {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]Id, 0, len(s.idToPriority))
	for id := range s.idToPriority {
		if startingPriority != nil && id.Priority > *startingPriority {
			continue
		}
		all = append(all, id)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Less(all[j]) })
	if reverse {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}

	if afterId != nil {
		start := 0
		for i, id := range all {
			if id == *afterId {
				start = i + 1
				break
			}
		}
		all = all[start:]
	}

	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// UpdateGroupDefaults records defaults for priority; if a group already
// exists there, the new cap is applied immediately and step 5's prune
// re-runs with an incoming byteSize of zero.
func (s *Store) UpdateGroupDefaults(priority uint32, defaults GroupDefaults) AddResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groupDefaults[priority] = defaults

	result := AddResult{}
	group, ok := s.groups[priority]
	if !ok {
		return result
	}
	if defaults.MaxByteSize != nil {
		cap := *defaults.MaxByteSize
		group.MaxByteSize = &cap
	} else {
		group.MaxByteSize = nil
	}
	if group.MaxByteSize != nil {
		for group.ByteSize > *group.MaxByteSize {
			oldID, size, ok := group.removeOldest()
			if !ok {
				break
			}
			delete(s.idToPriority, oldID)
			s.byteSize -= size
			result.BytesRemoved += size
			result.MsgsRemoved = append(result.MsgsRemoved, oldID)
		}
	}
	if group.empty() {
		delete(s.groups, priority)
	}
	return result
}

// DeleteGroupDefaults clears the recorded defaults for priority. If a
// group exists there, its cap is cleared but its messages are kept.
func (s *Store) DeleteGroupDefaults(priority uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groupDefaults, priority)
	if group, ok := s.groups[priority]; ok {
		group.MaxByteSize = nil
	}
}

// UpdateStoreDefaults sets the store-wide cap and evicts globally
// oldest-lowest-priority messages until the store fits under it.
func (s *Store) UpdateStoreDefaults(defaults StoreDefaults) AddResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxByteSize = defaults.MaxByteSize
	result := AddResult{}
	if s.maxByteSize == nil {
		return result
	}
	for s.byteSize > *s.maxByteSize {
		group, priority, found := s.lowestNonEmptyOverall()
		if !found {
			break
		}
		oldID, size, ok := group.removeOldest()
		if !ok {
			break
		}
		delete(s.idToPriority, oldID)
		s.byteSize -= size
		result.BytesRemoved += size
		result.MsgsRemoved = append(result.MsgsRemoved, oldID)
		if group.empty() {
			delete(s.groups, priority)
			result.GroupsRemoved = append(result.GroupsRemoved, priority)
		}
	}
	return result
}

func (s *Store) lowestNonEmptyOverall() (*Group, uint32, bool) {
	best := int64(-1)
	var bestGroup *Group
	for p, g := range s.groups {
		if g.empty() {
			continue
		}
		if best == -1 || int64(p) < best {
			best = int64(p)
			bestGroup = g
		}
	}
	if bestGroup == nil {
		return nil, 0, false
	}
	return bestGroup, uint32(best), true
}

// Metadata is a (id, priority, byte size) tuple for listing without
// fetching bodies, supplementing the id-only GetN for UI/diagnostic use.
type Metadata struct {
	Id       Id
	Priority uint32
	ByteSize uint64
}

// ListMetadata returns up to limit entries starting at offset, in dispatch
// order, optionally filtered to a single priority.
func (s *Store) ListMetadata(offset, limit int, priority *uint32) []Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		id   Id
		size uint64
	}
	all := make([]entry, 0, len(s.idToPriority))
	for id := range s.idToPriority {
		if priority != nil && id.Priority != *priority {
			continue
		}
		g := s.groups[id.Priority]
		var size uint64
		for i, m := range g.members {
			if m == id {
				size = g.sizeByMember[i]
				break
			}
		}
		all = append(all, entry{id: id, size: size})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id.Less(all[j].id) })

	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]Metadata, len(all))
	for i, e := range all {
		out[i] = Metadata{Id: e.id, Priority: e.id.Priority, ByteSize: e.size}
	}
	return out
}

// Snapshot is a point-in-time diagnostic dump of store bookkeeping.
type Snapshot struct {
	ByteSize    uint64
	MaxByteSize *uint64
	Groups      []GroupSnapshot
}

// GroupSnapshot summarizes one priority group for Snapshot.
type GroupSnapshot struct {
	Priority    uint32
	ByteSize    uint64
	MaxByteSize *uint64
	MessageCount int
}

// Snapshot renders the current bookkeeping state for diagnostics/export.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{ByteSize: s.byteSize, MaxByteSize: s.maxByteSize}
	priorities := make([]uint32, 0, len(s.groups))
	for p := range s.groups {
		priorities = append(priorities, p)
	}
	sort.Slice(priorities, func(i, j int) bool { return priorities[i] > priorities[j] })
	for _, p := range priorities {
		g := s.groups[p]
		snap.Groups = append(snap.Groups, GroupSnapshot{
			Priority:     p,
			ByteSize:     g.ByteSize,
			MaxByteSize:  g.MaxByteSize,
			MessageCount: len(g.members),
		})
	}
	return snap
}
