package types

// Row is one element of a visible list. Header is set only on the first
// visible row of a time bucket. Group rows carry only their visible members.
type Row struct {
	Header       string `json:"header,omitempty"`
	Bucket       string `json:"bucket,omitempty"`
	Entry        Entry  `json:"entry"`
	VisibleCount int    `json:"visible_count"`
	TotalCount   int    `json:"total_count"`
}

type VisibleList struct {
	Scope           Scope  `json:"scope"`
	Rows            []Row  `json:"rows"`
	ListVersion     uint64 `json:"list_version"`
	PendingRevision uint64 `json:"pending_revision"`
	HasMore         bool   `json:"has_more,omitempty"`
	NeedsMore       bool   `json:"needs_more,omitempty"`
}

// Refs lists every visible leaf item and group member.
func (v VisibleList) Refs() []ItemRef {
	out := make([]ItemRef, 0, len(v.Rows))
	for _, row := range v.Rows {
		if row.Entry.IsGroup() {
			for _, member := range row.Entry.Group.Items {
				out = append(out, MemberRef(row.Entry.Group.ID, member.ID))
			}
			continue
		}
		if row.Entry.Item != nil {
			out = append(out, LeafRef(row.Entry.Item.ID))
		}
	}
	return out
}

func (v VisibleList) Contains(ref ItemRef) bool {
	for _, visible := range v.Refs() {
		if visible == ref {
			return true
		}
	}
	return false
}

func (v VisibleList) Headers() []string {
	var out []string
	for _, row := range v.Rows {
		if row.Header != "" {
			out = append(out, row.Header)
		}
	}
	return out
}
