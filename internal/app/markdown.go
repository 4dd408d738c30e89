package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

const helpMarkdown = `# Reprieve

Deleted items disappear at once and stay recoverable until the undo window
runs out. Only then are they removed from storage.

| Key | Action |
|-----|--------|
| ` + "`space`" + ` | mark the row under the cursor |
| ` + "`d`" + ` | delete marked rows, or the row under the cursor |
| ` + "`u`" + ` | undo the last deletion in this list |
| ` + "`f`" + ` | delete pending rows now |
| ` + "`tab`" + ` | next list |
| ` + "`y`" + ` | copy the row's URL |
| ` + "`?`" + ` | toggle this help |
| ` + "`q`" + ` | finish pending deletions and quit |

> Deleting a group row removes every item in it. Once a deletion has
> started, undo reports that it is too late.
`

var (
	rendererMu       sync.Mutex
	renderersByWidth = map[int]*glamour.TermRenderer{}
)

func renderMarkdown(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := getRenderer(width)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true)
	return strings.TrimRight(out, "\n")
}

func getRenderer(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if renderer, ok := renderersByWidth[width]; ok && renderer != nil {
		return renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(buildStyleConfig()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderersByWidth[width] = r
	return r
}

func buildStyleConfig() glamouransi.StyleConfig {
	base := styles.DarkStyleConfig
	// Spacing around the overlay comes from lipgloss padding.
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	faint := true
	color := "245"
	base.BlockQuote.StylePrimitive.Faint = &faint
	base.BlockQuote.StylePrimitive.Color = &color
	return base
}
