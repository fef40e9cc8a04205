package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// Stream event names, as seen on the wire.
const (
	EventStepProgress     = "agent_progress"
	EventPipelineComplete = "pipeline_complete"
)

// StreamEvent is one entry in a run's progress stream.
type StreamEvent struct {
	Name string
	Data any
}

const (
	subscriberBuffer = 32
	maxRetainedRuns  = 256
)

type runStream struct {
	events []StreamEvent
	subs   map[int]chan StreamEvent
	nextID int
	done   bool
}

// Hub fans pipeline progress out to stream subscribers. It implements
// ports.ProgressSink. Emission never blocks: a subscriber that cannot
// keep up loses events and must rely on the stored run record.
type Hub struct {
	mu     sync.Mutex
	runs   map[string]*runStream
	order  []string
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{runs: make(map[string]*runStream), logger: logger}
}

// Emit appends a step event to the run's stream and fans it out.
func (h *Hub) Emit(runID string, event domain.ProgressEvent) {
	h.publish(runID, StreamEvent{Name: EventStepProgress, Data: event}, false)
}

// Complete terminates the run's stream. Every subscriber channel is
// closed after the terminal event; later subscribers get a replay ending
// in the same terminal event.
func (h *Hub) Complete(runID string, event domain.PipelineComplete) {
	h.publish(runID, StreamEvent{Name: EventPipelineComplete, Data: event}, true)
}

// Subscribe attaches to a run's stream, replaying everything emitted so
// far. The second return value detaches; callers must invoke it.
func (h *Hub) Subscribe(runID string) (<-chan StreamEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs := h.stream(runID)
	ch := make(chan StreamEvent, max(subscriberBuffer, len(rs.events)+1))
	for _, ev := range rs.events {
		ch <- ev
	}
	if rs.done {
		close(ch)
		return ch, func() {}
	}

	id := rs.nextID
	rs.nextID++
	rs.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if cur, ok := h.runs[runID]; ok {
			if sub, live := cur.subs[id]; live {
				delete(cur.subs, id)
				close(sub)
			}
		}
	}
	return ch, cancel
}

// Dispatch routes a relayed envelope into the hub, keyed by its run.
// It is the receiving end of a ProgressBus subscription.
func (h *Hub) Dispatch(env domain.ProgressEnvelope) {
	switch {
	case env.Complete != nil:
		h.Complete(env.RunID, *env.Complete)
	case env.Progress != nil:
		h.Emit(env.RunID, *env.Progress)
	}
}

func (h *Hub) publish(runID string, ev StreamEvent, terminal bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs := h.stream(runID)
	if rs.done {
		return
	}
	rs.events = append(rs.events, ev)
	for id, ch := range rs.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("progress_subscriber_lagging", "run_id", runID, "subscriber", id)
		}
	}
	if terminal {
		rs.done = true
		for id, ch := range rs.subs {
			delete(rs.subs, id)
			close(ch)
		}
	}
}

// stream returns the run's record, creating it and evicting the oldest
// retained run when over capacity. Callers hold h.mu.
func (h *Hub) stream(runID string) *runStream {
	if rs, ok := h.runs[runID]; ok {
		return rs
	}
	rs := &runStream{subs: make(map[int]chan StreamEvent)}
	h.runs[runID] = rs
	h.order = append(h.order, runID)
	for len(h.order) > maxRetainedRuns {
		oldest := h.order[0]
		h.order = h.order[1:]
		if old, ok := h.runs[oldest]; ok {
			for id, ch := range old.subs {
				delete(old.subs, id)
				close(ch)
			}
			delete(h.runs, oldest)
		}
	}
	return rs
}

// RelaySink mirrors progress into the local hub and publishes it on the
// bus so stream subscribers in other processes can follow the run. It
// implements ports.ProgressSink for the worker, where the orchestrator
// runs but the SSE endpoint does not. Publish failures are logged and
// dropped.
type RelaySink struct {
	Hub    *Hub
	Bus    ports.ProgressBus
	Logger *slog.Logger
}

func (s *RelaySink) Emit(runID string, event domain.ProgressEvent) {
	s.Hub.Emit(runID, event)
	s.relay(runID, domain.ProgressEnvelope{RunID: runID, Progress: &event})
}

func (s *RelaySink) Complete(runID string, event domain.PipelineComplete) {
	s.Hub.Complete(runID, event)
	s.relay(runID, domain.ProgressEnvelope{RunID: runID, Complete: &event})
}

func (s *RelaySink) relay(runID string, env domain.ProgressEnvelope) {
	if err := s.Bus.PublishProgress(context.Background(), env); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("progress_relay_failed", "run_id", runID, "error", err)
	}
}
