package types

// PendingSet is an immutable set of refs marked for deletion in one scope.
// With and Without return a new set; the receiver is never modified, so a
// set handed to a reader cannot change underneath it. The revision advances
// whenever the contents change.
type PendingSet struct {
	refs     map[ItemRef]struct{}
	revision uint64
}

func NewPendingSet(refs ...ItemRef) PendingSet {
	return PendingSet{}.With(refs...)
}

func (p PendingSet) Revision() uint64 {
	return p.revision
}

func (p PendingSet) Len() int {
	return len(p.refs)
}

func (p PendingSet) Empty() bool {
	return len(p.refs) == 0
}

func (p PendingSet) Has(ref ItemRef) bool {
	_, ok := p.refs[ref]
	return ok
}

// Hides reports whether ref is hidden, either directly or because its whole
// group is pending.
func (p PendingSet) Hides(ref ItemRef) bool {
	if p.Has(ref) {
		return true
	}
	if ref.IsMember() {
		return p.Has(GroupRef(ref.GroupID))
	}
	return false
}

func (p PendingSet) Refs() []ItemRef {
	out := make([]ItemRef, 0, len(p.refs))
	for ref := range p.refs {
		out = append(out, ref)
	}
	SortItemRefs(out)
	return out
}

func (p PendingSet) With(refs ...ItemRef) PendingSet {
	added := false
	for _, ref := range refs {
		if ref.Valid() && !p.Has(ref) {
			added = true
			break
		}
	}
	if !added {
		return p
	}
	next := make(map[ItemRef]struct{}, len(p.refs)+len(refs))
	for ref := range p.refs {
		next[ref] = struct{}{}
	}
	for _, ref := range refs {
		if ref.Valid() {
			next[ref] = struct{}{}
		}
	}
	return PendingSet{refs: next, revision: p.revision + 1}
}

func (p PendingSet) Without(refs ...ItemRef) PendingSet {
	removed := false
	for _, ref := range refs {
		if p.Has(ref) {
			removed = true
			break
		}
	}
	if !removed {
		return p
	}
	drop := make(map[ItemRef]struct{}, len(refs))
	for _, ref := range refs {
		drop[ref] = struct{}{}
	}
	next := make(map[ItemRef]struct{}, len(p.refs))
	for ref := range p.refs {
		if _, ok := drop[ref]; ok {
			continue
		}
		next[ref] = struct{}{}
	}
	return PendingSet{refs: next, revision: p.revision + 1}
}

// Subset reports whether every ref in p is also in other.
func (p PendingSet) Subset(other PendingSet) bool {
	for ref := range p.refs {
		if !other.Has(ref) {
			return false
		}
	}
	return true
}
