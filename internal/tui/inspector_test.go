package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/commonenv/internal/logging"
	"github.com/kingrea/commonenv/internal/module"
)

func sampleEntries() []module.Entry {
	return []module.Entry{
		{ID: module.RootID, State: module.StateInvoked, Dependencies: []string{"app/util", "json_rpc"}},
		{ID: "app/util", State: module.StateFailed, Err: errors.New("factory refused")},
		{ID: "json_rpc", State: module.StateLoaded},
	}
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestInspectorRendersSnapshot(t *testing.T) {
	inspector := NewInspector(func() []module.Entry { return sampleEntries() })
	view := inspector.View()
	for _, want := range []string{"(root)", "app/util", "json_rpc", "deps: app/util, json_rpc"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestInspectorSelectionShowsError(t *testing.T) {
	inspector := NewInspector(func() []module.Entry { return sampleEntries() })
	model, _ := inspector.Update(keyMsg("down"))
	inspector = model.(*Inspector)

	entry, ok := inspector.Selected()
	if !ok || entry.ID != "app/util" {
		t.Fatalf("selected = %+v, %v", entry, ok)
	}
	if view := inspector.View(); !strings.Contains(view, "error: factory refused") {
		t.Fatalf("view missing error:\n%s", view)
	}
}

func TestInspectorRefreshAndQuit(t *testing.T) {
	calls := 0
	inspector := NewInspector(func() []module.Entry {
		calls++
		return sampleEntries()[:calls]
	})
	if calls != 1 {
		t.Fatalf("expected initial snapshot, got %d calls", calls)
	}
	inspector.Update(keyMsg("r"))
	if calls != 2 || len(inspector.entries) != 2 {
		t.Fatalf("refresh calls=%d entries=%d", calls, len(inspector.entries))
	}

	_, cmd := inspector.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if inspector.View() != "" {
		t.Fatalf("expected empty view after quit")
	}
}

func TestInspectorHistoryPane(t *testing.T) {
	history := func() []logging.Entry {
		return []logging.Entry{{
			Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Level:   zapcore.WarnLevel,
			Module:  "json_rpc",
			Message: "request response failed",
		}}
	}
	inspector := NewInspector(func() []module.Entry { return nil }, WithHistory(history), WithTitle("bundle"))
	view := inspector.View()
	for _, want := range []string{"bundle", "No modules registered.", "WARN", "request response failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}
