package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// JobProgress is the last reported position of one running job.
type JobProgress struct {
	Job   string `json:"job"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// Tracker records job progress reported by the engine. It is safe for
// concurrent use.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]JobProgress
}

func NewTracker() *Tracker {
	return &Tracker{jobs: map[string]JobProgress{}}
}

func (t *Tracker) Report(_ context.Context, job string, done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// reports from concurrent workers may arrive out of order
	if cur, ok := t.jobs[job]; ok && cur.Total == total && cur.Done > done {
		return
	}
	t.jobs[job] = JobProgress{Job: job, Done: done, Total: total}
}

func (t *Tracker) Snapshot() []JobProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JobProgress, 0, len(t.jobs))
	for _, p := range t.jobs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// Progress serves the tracker's snapshot as JSON.
func Progress(t *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Jobs []JobProgress `json:"jobs"`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp{Jobs: t.Snapshot()})
	}
}
