// Package reconcile computes the list a user sees from the authoritative
// source list and the refs currently pending deletion.
package reconcile

import "reprieve/internal/types"

// Reconcile walks list in order, dropping pending leaf items, shrinking groups
// to their visible members and dropping groups with no visible members. Time
// bucket headers are attached to the first visible row of each bucket.
//
// Reconcile is pure: it never modifies list or pending, and equal inputs give
// equal outputs.
func Reconcile(list types.SourceList, pending types.PendingSet, bucket Bucketer) types.VisibleList {
	out := types.VisibleList{
		Scope:           list.Scope,
		Rows:            make([]types.Row, 0, len(list.Entries)),
		ListVersion:     list.Version,
		PendingRevision: pending.Revision(),
		HasMore:         list.HasMore,
	}
	lastBucket := ""
	for _, entry := range list.Entries {
		row, ok := visibleRow(entry, pending)
		if !ok {
			continue
		}
		if bucket != nil {
			row.Bucket = bucket(row.Entry.Timestamp())
			if len(out.Rows) == 0 || row.Bucket != lastBucket {
				row.Header = row.Bucket
			}
			lastBucket = row.Bucket
		}
		out.Rows = append(out.Rows, row)
	}
	out.NeedsMore = list.HasMore && len(out.Rows) == 0
	return out
}

func visibleRow(entry types.Entry, pending types.PendingSet) (types.Row, bool) {
	if entry.IsGroup() {
		return visibleGroupRow(*entry.Group, pending)
	}
	if entry.Item == nil {
		return types.Row{}, false
	}
	if pending.Hides(types.LeafRef(entry.Item.ID)) {
		return types.Row{}, false
	}
	return types.Row{
		Entry:        types.ItemEntry(*entry.Item),
		VisibleCount: 1,
		TotalCount:   1,
	}, true
}

func visibleGroupRow(group types.Group, pending types.PendingSet) (types.Row, bool) {
	if pending.Has(types.GroupRef(group.ID)) {
		return types.Row{}, false
	}
	members := make([]types.Item, 0, len(group.Items))
	for _, member := range group.Items {
		if pending.Hides(types.MemberRef(group.ID, member.ID)) {
			continue
		}
		members = append(members, member)
	}
	if len(members) == 0 {
		return types.Row{}, false
	}
	total := len(group.Items)
	group.Items = members
	return types.Row{
		Entry:        types.GroupEntry(group),
		VisibleCount: len(members),
		TotalCount:   total,
	}, true
}
