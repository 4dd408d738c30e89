package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ItemRef addresses a deletable element: a leaf item (ItemID only), a group
// member (GroupID and ItemID) or a whole group (GroupID only).
type ItemRef struct {
	GroupID string `json:"group_id,omitempty"`
	ItemID  string `json:"item_id,omitempty"`
}

const groupWildcard = "*"

func LeafRef(id string) ItemRef {
	return ItemRef{ItemID: id}
}

func MemberRef(groupID, id string) ItemRef {
	return ItemRef{GroupID: groupID, ItemID: id}
}

func GroupRef(groupID string) ItemRef {
	return ItemRef{GroupID: groupID}
}

func (r ItemRef) Valid() bool {
	return strings.TrimSpace(r.GroupID) != "" || strings.TrimSpace(r.ItemID) != ""
}

func (r ItemRef) IsLeaf() bool {
	return r.GroupID == "" && r.ItemID != ""
}

func (r ItemRef) IsMember() bool {
	return r.GroupID != "" && r.ItemID != ""
}

func (r ItemRef) IsGroup() bool {
	return r.GroupID != "" && r.ItemID == ""
}

func (r ItemRef) String() string {
	switch {
	case r.IsGroup():
		return r.GroupID + "/" + groupWildcard
	case r.IsMember():
		return r.GroupID + "/" + r.ItemID
	default:
		return r.ItemID
	}
}

// ParseItemRef accepts "id", "group/id" and "group/*".
func ParseItemRef(raw string) (ItemRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ItemRef{}, errors.New("item ref is required")
	}
	groupID, itemID, found := strings.Cut(raw, "/")
	if !found {
		return LeafRef(raw), nil
	}
	groupID = strings.TrimSpace(groupID)
	itemID = strings.TrimSpace(itemID)
	if groupID == "" {
		return ItemRef{}, fmt.Errorf("item ref %q: group id is required", raw)
	}
	if itemID == "" || itemID == groupWildcard {
		return GroupRef(groupID), nil
	}
	if strings.Contains(itemID, "/") {
		return ItemRef{}, fmt.Errorf("item ref %q: too many segments", raw)
	}
	return MemberRef(groupID, itemID), nil
}

type ItemRefs []ItemRef

func (refs ItemRefs) String() string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.String())
	}
	return strings.Join(parts, ",")
}

// NormalizeItemRefs drops invalid refs and duplicates and sorts the result.
func NormalizeItemRefs(refs []ItemRef) []ItemRef {
	if len(refs) == 0 {
		return nil
	}
	seen := map[ItemRef]struct{}{}
	out := make([]ItemRef, 0, len(refs))
	for _, ref := range refs {
		ref = ItemRef{GroupID: strings.TrimSpace(ref.GroupID), ItemID: strings.TrimSpace(ref.ItemID)}
		if !ref.Valid() {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	SortItemRefs(out)
	return out
}

func SortItemRefs(refs []ItemRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].GroupID != refs[j].GroupID {
			return refs[i].GroupID < refs[j].GroupID
		}
		return refs[i].ItemID < refs[j].ItemID
	})
}
