package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/procmeta/internal/presentation/tui"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	types = []domain.ProcessType{
		{ID: "r", Code: "ROOT", NameEN: "Root"},
		{ID: "a", Code: "A", NameEN: "Alpha", ParentID: "r"},
		{ID: "b", Code: "B", NameEN: "Beta", ParentID: "a"},
		{ID: "z", Code: "Z", NameEN: "Zeta"},
	}
	states = []domain.ProcessState{
		{ID: "s1", Code: "NEW", NameEN: "New", Start: true, ColorCode: "#00ff00"},
		{ID: "s2", Code: "DONE", NameEN: "Done|Closed"},
	}
	ops = []domain.ProcessOperation{
		{ID: "o1", Code: "CLOSE", NameEN: "Close", AvailableStateIDs: []string{"s1", "gone"}},
	}
)

func TestRenderTree(t *testing.T) {
	var buf bytes.Buffer
	expand := domain.ExpandState{}
	expand.Collapse("a")

	tui.RenderTree(&buf, termenv.Ascii, tui.TreeView{
		Forest:   domain.BuildForest(types),
		Expand:   expand,
		Selected: "A",
		Pending:  map[string]bool{"Z": true},
	})

	assert.Equal(t, strings.Join([]string{
		"▾ ROOT  Root",
		"  ▸ A  Alpha",
		"· Z  Zeta *",
		"",
	}, "\n"), buf.String())
}

func TestRenderStates(t *testing.T) {
	var buf bytes.Buffer
	tui.RenderStates(&buf, termenv.Ascii, states, "s2")
	assert.Equal(t, "● NEW  New\n○ DONE  Done|Closed\n", buf.String())
}

func TestTypeMarkdown(t *testing.T) {
	md := tui.TypeMarkdown(domain.ProcessType{Code: "ORD", NameEN: "Orders", NameRU: "Заказы", AttributesTable: "ord_attrs"}, states, ops)

	assert.Contains(t, md, "# ORD")
	assert.Contains(t, md, "`ord_attrs`")
	assert.Contains(t, md, "| NEW | New | yes | no | no | #00ff00 |")
	assert.Contains(t, md, `Done\|Closed`)
	assert.Contains(t, md, "| CLOSE | Close | NEW | no |")

	empty := tui.TypeMarkdown(domain.ProcessType{Code: "E"}, nil, nil)
	assert.Equal(t, 2, strings.Count(empty, "_none_"))
}

func TestRenderer(t *testing.T) {
	render, err := tui.NewRenderer(domain.ThemeDark, false)
	require.NoError(t, err)
	out, err := render("# ORDERS\n\nSome text.")
	require.NoError(t, err)
	assert.Contains(t, out, "ORDERS")
	assert.Contains(t, out, "Some text.")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "1.2.3")
}
