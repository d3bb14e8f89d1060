package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/procmeta/pkg/domain"
)

// GraphOverlay contains selection data to highlight on the graph.
type GraphOverlay struct {
	SelectedStateID     string
	SelectedOperationID string
}

// GenerateMermaid produces a Mermaid flowchart of the states and operations of
// one type. It applies semantic styling:
// - Start state: ((Circle))
// - State: [Rectangle]
// - Operation: [[Subroutine]]
// Every state an operation is available from gets an edge to it; cancel
// operations use dotted edges. Links to states missing from the list are
// skipped. States with a colour code are filled with it.
func GenerateMermaid(states []domain.ProcessState, ops []domain.ProcessOperation, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	known := make(map[string]string, len(states))
	for _, st := range states {
		safeID := "s_" + sanitizeMermaidID(st.Code)
		known[st.ID] = safeID

		opener, closer := "[", "]"
		if st.Start {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label(st.Code, st.NameEN), closer))
	}

	for _, o := range ops {
		safeID := "o_" + sanitizeMermaidID(o.Code)
		sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", safeID, label(o.Code, o.NameEN)))

		arrow := "-->"
		if o.Cancel {
			arrow = "-.->"
		}
		for _, id := range o.AvailableStateIDs {
			from, ok := known[id]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, safeID))
		}
	}

	var styles []string
	for _, st := range states {
		if st.ColorCode != "" {
			styles = append(styles, fmt.Sprintf("    style %s fill:%s,color:#000;\n", known[st.ID], st.ColorCode))
		}
	}
	if len(styles) > 0 {
		sb.WriteString("\n    %% State Colours\n")
		sb.WriteString(strings.Join(styles, ""))
	}

	if overlay != nil {
		var selected string
		if id, ok := known[overlay.SelectedStateID]; ok {
			selected = id
		}
		for _, o := range ops {
			if overlay.SelectedOperationID != "" && o.ID == overlay.SelectedOperationID {
				selected = "o_" + sanitizeMermaidID(o.Code)
			}
		}
		if selected != "" {
			sb.WriteString("\n    %% Overlay Styles\n")
			// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
			sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
			sb.WriteString(fmt.Sprintf("    class %s current;\n", selected))
		}
	}

	return sb.String()
}

func label(code, name string) string {
	text := code
	if name != "" && name != code {
		text = code + " <br/> " + name
	}
	return strings.ReplaceAll(text, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
