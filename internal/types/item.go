package types

import (
	"strings"
	"time"
)

// Scope namespaces pending deletions and episodes, e.g. "history".
type Scope string

const (
	ScopeHistory   Scope = "history"
	ScopeBookmarks Scope = "bookmarks"
	ScopeDownloads Scope = "downloads"
	ScopeTabs      Scope = "tabs"
)

func DefaultScopes() []Scope {
	return []Scope{ScopeHistory, ScopeBookmarks, ScopeDownloads, ScopeTabs}
}

func NormalizeScope(raw string) (Scope, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || strings.ContainsAny(value, " \t\n/") {
		return "", false
	}
	return Scope(value), true
}

type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Group struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Items     []Item    `json:"items"`
}

type EntryKind string

const (
	EntryKindItem  EntryKind = "item"
	EntryKindGroup EntryKind = "group"
)

// Entry is one element of a source list: a leaf Item or a Group.
type Entry struct {
	Kind  EntryKind `json:"kind"`
	Item  *Item     `json:"item,omitempty"`
	Group *Group    `json:"group,omitempty"`
}

func ItemEntry(item Item) Entry {
	return Entry{Kind: EntryKindItem, Item: &item}
}

func GroupEntry(group Group) Entry {
	group.Items = append([]Item(nil), group.Items...)
	return Entry{Kind: EntryKindGroup, Group: &group}
}

func (e Entry) ID() string {
	switch {
	case e.Kind == EntryKindGroup && e.Group != nil:
		return e.Group.ID
	case e.Item != nil:
		return e.Item.ID
	default:
		return ""
	}
}

// Key identifies the entry within its list in ref syntax: "id" for a leaf,
// "group/*" for a group. Page cursors carry the key of a page's last entry.
func (e Entry) Key() string {
	switch {
	case e.Kind == EntryKindGroup && e.Group != nil:
		return GroupRef(e.Group.ID).String()
	case e.Item != nil:
		return LeafRef(e.Item.ID).String()
	default:
		return ""
	}
}

func (e Entry) Title() string {
	switch {
	case e.Kind == EntryKindGroup && e.Group != nil:
		return e.Group.Title
	case e.Item != nil:
		return e.Item.Title
	default:
		return ""
	}
}

// Timestamp is the sort key used for time buckets. Groups without an explicit
// timestamp take their first member's.
func (e Entry) Timestamp() time.Time {
	switch {
	case e.Kind == EntryKindGroup && e.Group != nil:
		if !e.Group.Timestamp.IsZero() {
			return e.Group.Timestamp
		}
		if len(e.Group.Items) > 0 {
			return e.Group.Items[0].Timestamp
		}
		return time.Time{}
	case e.Item != nil:
		return e.Item.Timestamp
	default:
		return time.Time{}
	}
}

func (e Entry) IsGroup() bool {
	return e.Kind == EntryKindGroup && e.Group != nil
}

func CloneEntry(e Entry) Entry {
	out := Entry{Kind: e.Kind}
	if e.Item != nil {
		item := *e.Item
		out.Item = &item
	}
	if e.Group != nil {
		group := *e.Group
		group.Items = append([]Item(nil), e.Group.Items...)
		out.Group = &group
	}
	return out
}

// SourceList is the authoritative ordered list for one scope, possibly one of
// several pages. Version is assigned by the state reducer.
type SourceList struct {
	Scope   Scope   `json:"scope"`
	Entries []Entry `json:"entries"`
	Cursor  string  `json:"cursor,omitempty"`
	HasMore bool    `json:"has_more,omitempty"`
	Version uint64  `json:"-"`
}

func CloneSourceList(in SourceList) SourceList {
	out := in
	if in.Entries != nil {
		out.Entries = make([]Entry, 0, len(in.Entries))
		for _, entry := range in.Entries {
			out.Entries = append(out.Entries, CloneEntry(entry))
		}
	}
	return out
}

// Refs returns the ref of every deletable element in the list: leaf items
// and group members.
func (l SourceList) Refs() []ItemRef {
	out := make([]ItemRef, 0, len(l.Entries))
	for _, entry := range l.Entries {
		if entry.IsGroup() {
			for _, member := range entry.Group.Items {
				out = append(out, MemberRef(entry.Group.ID, member.ID))
			}
			continue
		}
		if entry.Item != nil {
			out = append(out, LeafRef(entry.Item.ID))
		}
	}
	return out
}

// WithoutRefs returns a copy of the list with the referenced elements
// removed. A whole-group ref removes the group; removing the last member of
// a group removes the group too.
func (l SourceList) WithoutRefs(refs []ItemRef) SourceList {
	if len(refs) == 0 {
		return CloneSourceList(l)
	}
	drop := NewPendingSet(refs...)
	out := l
	out.Entries = make([]Entry, 0, len(l.Entries))
	for _, entry := range l.Entries {
		if entry.IsGroup() {
			if drop.Has(GroupRef(entry.Group.ID)) {
				continue
			}
			group := *entry.Group
			group.Items = make([]Item, 0, len(entry.Group.Items))
			for _, member := range entry.Group.Items {
				if drop.Has(MemberRef(entry.Group.ID, member.ID)) {
					continue
				}
				group.Items = append(group.Items, member)
			}
			if len(group.Items) == 0 && len(entry.Group.Items) > 0 {
				continue
			}
			out.Entries = append(out.Entries, Entry{Kind: EntryKindGroup, Group: &group})
			continue
		}
		if entry.Item != nil && drop.Has(LeafRef(entry.Item.ID)) {
			continue
		}
		out.Entries = append(out.Entries, CloneEntry(entry))
	}
	return out
}
