package sync

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerSurfacesNewMessages(t *testing.T) {
	h := newHarness(t)

	var polls atomic.Int64
	h.mux.HandleFunc("GET /conversas/{id}/mensagens", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"mensagens": []any{
				map[string]any{"id": "m-in", "id_usuario": "c-1", "texto": "ping", "data_envio": "2026-08-30T12:00:00Z"},
			},
			"paginas": 1, "total": 1, "pagina_atual": 1,
		})
	})

	p := NewPoller(h.engine, 10*time.Millisecond, nil)
	p.Watch(context.Background(), "conv-1")
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for polls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("poller never fetched")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Give the merge a moment after the first fetch.
	deadline = time.After(2 * time.Second)
	for len(h.engine.View().Messages("conv-1")) == 0 {
		select {
		case <-deadline:
			t.Fatal("inbound message never surfaced")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := p.Watching(); got != "conv-1" {
		t.Fatalf("watching = %q, want conv-1", got)
	}
}

func TestPollerWatchReplacesPrevious(t *testing.T) {
	h := newHarness(t)

	var first, second atomic.Int64
	h.mux.HandleFunc("GET /conversas/{id}/mensagens", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "conv-1":
			first.Add(1)
		case "conv-2":
			second.Add(1)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"mensagens": []any{}, "paginas": 1, "total": 0, "pagina_atual": 1,
		})
	})

	p := NewPoller(h.engine, 10*time.Millisecond, nil)
	p.Watch(context.Background(), "conv-1")
	time.Sleep(35 * time.Millisecond)
	p.Watch(context.Background(), "conv-2")

	settled := first.Load()
	deadline := time.After(2 * time.Second)
	for second.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("second watch never polled")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(50 * time.Millisecond)
	// Allow one in-flight tick from the old loop, nothing beyond that.
	if d := first.Load() - settled; d > 1 {
		t.Fatalf("old watch kept polling %d times after replacement", d)
	}

	p.Stop()
	if got := p.Watching(); got != "" {
		t.Fatalf("watching after stop = %q, want empty", got)
	}
}

func TestPollerSkipsWhileOffline(t *testing.T) {
	h := newHarness(t)

	var polls atomic.Int64
	h.mux.HandleFunc("GET /conversas/{id}/mensagens", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"mensagens": []any{}, "paginas": 1, "total": 0, "pagina_atual": 1,
		})
	})
	h.monitor.Set(false)

	p := NewPoller(h.engine, 10*time.Millisecond, nil)
	p.Watch(context.Background(), "conv-1")
	defer p.Stop()

	time.Sleep(60 * time.Millisecond)
	if n := polls.Load(); n != 0 {
		t.Fatalf("poller hit the server %d times while offline", n)
	}
}
