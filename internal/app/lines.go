package app

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"reprieve/internal/types"
)

type lineKind int

const (
	lineHeader lineKind = iota
	lineGroup
	lineMember
	lineLeaf
)

type listLine struct {
	kind  lineKind
	ref   types.ItemRef
	title string
	url   string
	count int
	total int
}

func (l listLine) selectable() bool {
	return l.kind != lineHeader
}

// buildLines flattens a visible list into display lines: a bucket header
// before the first row of each bucket, a group line followed by its visible
// members, and plain leaf lines.
func buildLines(v types.VisibleList) []listLine {
	out := make([]listLine, 0, len(v.Rows)+4)
	for _, row := range v.Rows {
		if row.Header != "" {
			out = append(out, listLine{kind: lineHeader, title: row.Header})
		}
		entry := row.Entry
		if entry.IsGroup() {
			group := entry.Group
			out = append(out, listLine{
				kind:  lineGroup,
				ref:   types.GroupRef(group.ID),
				title: displayTitle(group.Title, group.ID),
				count: row.VisibleCount,
				total: row.TotalCount,
			})
			for _, member := range group.Items {
				out = append(out, listLine{
					kind:  lineMember,
					ref:   types.MemberRef(group.ID, member.ID),
					title: displayTitle(member.Title, member.ID),
					url:   cleanText(member.URL),
				})
			}
			continue
		}
		if entry.Item == nil {
			continue
		}
		out = append(out, listLine{
			kind:  lineLeaf,
			ref:   types.LeafRef(entry.Item.ID),
			title: displayTitle(entry.Item.Title, entry.Item.ID),
			url:   cleanText(entry.Item.URL),
		})
	}
	return out
}

func displayTitle(title, id string) string {
	title = cleanText(title)
	if title == "" {
		return id
	}
	return title
}

// cleanText strips terminal escapes and line breaks from stored text before
// it is drawn.
var whitespaceReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

func cleanText(value string) string {
	value = xansi.Strip(whitespaceReplacer.Replace(value))
	value = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, value)
	return strings.TrimSpace(value)
}

func (l listLine) render(width int, selected, marked bool) string {
	if l.kind == lineHeader {
		return bucketHeaderStyle.Render(truncate(l.title, width))
	}
	mark := "  "
	if marked {
		mark = "• "
	}
	indent := ""
	label := l.title
	style := itemStyle
	switch l.kind {
	case lineGroup:
		label = fmt.Sprintf("%s (%d)", l.title, l.count)
		style = groupStyle
	case lineMember:
		indent = "  "
	}
	avail := width - 2 - len(indent)
	label = truncate(label, avail)
	url := ""
	if l.url != "" {
		if room := avail - xansi.StringWidth(label) - 2; room > 8 {
			url = truncate(l.url, room)
		}
	}
	if selected {
		plain := mark + indent + label
		if url != "" {
			plain += "  " + url
		}
		return selectedStyle.Render(plain)
	}
	out := indent + style.Render(label)
	if marked {
		out = markStyle.Render(mark) + out
	} else {
		out = mark + out
	}
	if url != "" {
		out += "  " + urlStyle.Render(url)
	}
	return out
}

func truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	return xansi.Truncate(value, width, "…")
}
