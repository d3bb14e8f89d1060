package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/procmeta/pkg/domain"
)

// TypeMarkdown describes a type with its states and operations as markdown.
func TypeMarkdown(t domain.ProcessType, states []domain.ProcessState, ops []domain.ProcessOperation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", t.Code)
	fmt.Fprintf(&sb, "**%s** / %s\n\n", t.NameEN, t.NameRU)
	if t.AttributesTable != "" {
		fmt.Fprintf(&sb, "Attributes table: `%s`\n\n", t.AttributesTable)
	}

	codes := make(map[string]string, len(states))
	for _, st := range states {
		codes[st.ID] = st.Code
	}

	sb.WriteString("## States\n\n")
	if len(states) == 0 {
		sb.WriteString("_none_\n\n")
	} else {
		sb.WriteString("| Code | Name | Start | Edit | Delete | Colour |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")
		for _, st := range states {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				cell(st.Code), cell(st.NameEN), check(st.Start), check(st.AllowEdit), check(st.AllowDelete), cell(st.ColorCode))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Operations\n\n")
	if len(ops) == 0 {
		sb.WriteString("_none_\n")
		return sb.String()
	}
	sb.WriteString("| Code | Name | From | Cancel |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, o := range ops {
		from := make([]string, 0, len(o.AvailableStateIDs))
		for _, id := range o.AvailableStateIDs {
			if code, ok := codes[id]; ok {
				from = append(from, code)
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", cell(o.Code), cell(o.NameEN), cell(strings.Join(from, ", ")), check(o.Cancel))
	}
	return sb.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}

func check(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
