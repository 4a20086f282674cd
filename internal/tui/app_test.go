package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/teamtimer/internal/dailyplan"
	"github.com/fentz26/teamtimer/internal/engine"
	"github.com/fentz26/teamtimer/internal/models"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{3*3600 + 25*60 + 7, "03:25:07"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.seconds); got != tt.want {
			t.Errorf("formatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestProgressBar_Clamps(t *testing.T) {
	for _, pct := range []int{-10, 0, 50, 100, 250} {
		bar := progressBar(pct, 10)
		cells := strings.Count(bar, "█") + strings.Count(bar, "░")
		if cells != 10 {
			t.Errorf("progressBar(%d) has %d cells, want 10", pct, cells)
		}
	}
}

func newDaemon(t *testing.T, view engine.View) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/timer", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "timer?"+r.URL.RawQuery)
		write(w, view)
	})
	mux.HandleFunc("/timer/toggle", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "toggle")
		view.Running = !view.Running
		view.EffectiveRunning = view.Running
		write(w, view)
	})
	mux.HandleFunc("/timer/start", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		calls = append(calls, "start:"+req["task_id"])
		view.Running = true
		write(w, view)
	})
	mux.HandleFunc("/team/switch", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "switch aborted: boom", http.StatusConflict)
	})
	mux.HandleFunc("/plans/compare", func(w http.ResponseWriter, r *http.Request) {
		write(w, dailyplan.Comparison{
			Difference:      true,
			WorkTimePlanned: 7200,
			Estimated:       []bool{true},
			Plan:            &models.DailyPlan{ID: "p1", Date: "2024-03-05", WorkTimePlanned: 2},
		})
	})
	mux.HandleFunc("/plans/outstanding", func(w http.ResponseWriter, r *http.Request) {
		write(w, []models.DailyPlanTask{{ID: "a"}, {ID: "b"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestApp_FetchAndRender(t *testing.T) {
	estimate := int64(3600)
	srv, calls := newDaemon(t, engine.View{
		Loaded:            true,
		Running:           true,
		EffectiveRunning:  true,
		Seconds:           125,
		ActiveTeamID:      "team-a",
		ActiveTask:        &models.Task{ID: "task-1", Number: 42, Title: "Fix login", Estimate: &estimate},
		Today:             models.TaskStatistic{Duration: 1800},
		EstimationPercent: 50,
	})
	a := New(srv.URL)

	msg := fetchView(a.client, true)()
	if _, ok := msg.(viewMsg); !ok {
		t.Fatalf("expected viewMsg, got %T", msg)
	}
	a.Update(msg)
	a.Update(fetchPlan(a.client)())

	if (*calls)[0] != "timer?refresh=1" {
		t.Errorf("expected refresh request, got %v", *calls)
	}

	out := a.View()
	for _, want := range []string{"00:02:05", "#42 Fix login", "team team-a", "running", "50% of estimate", "02:00:00", "2 outstanding"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestApp_ToggleKey(t *testing.T) {
	srv, calls := newDaemon(t, engine.View{Loaded: true})
	a := New(srv.URL)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if cmd == nil {
		t.Fatal("expected a command for the toggle key")
	}
	res, ok := cmd().(cmdResultMsg)
	if !ok {
		t.Fatalf("expected cmdResultMsg")
	}
	if res.view == nil || !res.view.Running {
		t.Errorf("expected running view after toggle, got %+v", res.view)
	}
	a.Update(res)
	if a.view == nil || !a.view.Running {
		t.Error("expected app view to be updated")
	}
	if len(*calls) != 1 || (*calls)[0] != "toggle" {
		t.Errorf("unexpected calls: %v", *calls)
	}
}

func TestCmdBar_Commands(t *testing.T) {
	srv, calls := newDaemon(t, engine.View{Loaded: true})
	client := NewClient(srv.URL)
	bar := NewCmdBarModel()

	res := bar.Execute(client, "start task-9")().(cmdResultMsg)
	if res.message != "Timer started" {
		t.Errorf("unexpected message %q", res.message)
	}
	if (*calls)[0] != "start:task-9" {
		t.Errorf("unexpected calls: %v", *calls)
	}

	res = bar.Execute(client, "team team-b")().(cmdResultMsg)
	if !strings.Contains(res.message, "switch aborted") {
		t.Errorf("expected daemon error, got %q", res.message)
	}

	res = bar.Execute(client, "team")().(cmdResultMsg)
	if !strings.HasPrefix(res.message, "Usage") {
		t.Errorf("expected usage, got %q", res.message)
	}

	res = bar.Execute(client, "dance")().(cmdResultMsg)
	if res.message != "Unknown command: dance" {
		t.Errorf("unexpected message %q", res.message)
	}

	if bar.Execute(client, "   ") != nil {
		t.Error("expected nil command for blank input")
	}
}

func TestApp_OfflineDaemon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	a := New(srv.URL)

	a.Update(fetchView(a.client, false)())
	if a.online {
		t.Error("expected daemon to be offline")
	}
	if !strings.Contains(a.View(), "Error:") {
		t.Error("expected error in view")
	}
}
