package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/muesli/termenv"
)

// TreeView is what RenderTree needs to draw the type tree.
type TreeView struct {
	Forest   *domain.Forest
	Expand   domain.ExpandState
	Selected string // selected type code
	// Pending holds the codes of types with unsaved changes.
	Pending map[string]bool
}

// RenderTree writes the type tree, one type per line, indented by depth.
// Collapsed branches show ▸, expanded ones ▾, leaves a dot. The selected type
// is bold and types with unsaved changes get a trailing asterisk.
func RenderTree(w io.Writer, profile termenv.Profile, view TreeView) {
	out := termenv.NewOutput(w, termenv.WithProfile(profile))
	view.Forest.Walk(view.Expand, func(t domain.ProcessType, depth int, hasChildren, expanded bool) {
		marker := "·"
		if hasChildren {
			marker = "▸"
			if expanded {
				marker = "▾"
			}
		}
		text := fmt.Sprintf("%s %s  %s", marker, t.Code, t.NameEN)
		if view.Pending[t.Code] {
			text += " *"
		}
		styled := out.String(text)
		if t.Code == view.Selected {
			styled = styled.Bold().Foreground(out.Color("#38bdf8"))
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), styled)
	})
}

// RenderStates writes one line per state, coloured with its colour code.
// Start states are marked with ●.
func RenderStates(w io.Writer, profile termenv.Profile, states []domain.ProcessState, selectedID string) {
	out := termenv.NewOutput(w, termenv.WithProfile(profile))
	for _, st := range states {
		marker := "○"
		if st.Start {
			marker = "●"
		}
		styled := out.String(fmt.Sprintf("%s %s  %s", marker, st.Code, st.NameEN))
		if st.ColorCode != "" {
			styled = styled.Foreground(out.Color(st.ColorCode))
		}
		if st.ID == selectedID {
			styled = styled.Reverse()
		}
		fmt.Fprintln(w, styled)
	}
}
