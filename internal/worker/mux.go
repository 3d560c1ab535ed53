package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

// Mux routes queued extraction tasks to their handlers.
type Mux struct{ mux *asynq.ServeMux }

func NewMux() *Mux { return &Mux{mux: asynq.NewServeMux()} }

// HandleFunc binds a task type to its handler.
func (m *Mux) HandleFunc(taskType string, handler func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(taskType, handler)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }
