// Package worker implements the in-process remote-object collaborator: a
// tag-searchable tensor store plus a plan store that can replay received
// plans against locally held data. A worker is what plans are sent to;
// the same type backs the websocket transport in internal/remote.
//
// The store follows the usual split of immutable identity and mutable
// contents guarded by one lock; object IDs are process-unique and stable
// for the lifetime of the worker.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/plan"
	"github.com/vk/planweave/internal/tensor"
)

var objectCounter atomic.Int64

// Worker owns tensors and plans on behalf of remote parties.
type Worker struct {
	id  string
	reg *ops.Registry

	mu      sync.RWMutex
	objects map[int64]*tensor.Tensor
	tags    map[string][]int64
	plans   map[int64]*plan.Plan
	peers   map[string]*Worker
}

// Option configures a worker.
type Option func(*Worker)

// WithRegistry replays received plans against a custom operation registry.
func WithRegistry(reg *ops.Registry) Option {
	return func(w *Worker) { w.reg = reg }
}

// New creates a worker with the given identity.
func New(id string, opts ...Option) *Worker {
	w := &Worker{
		id:      id,
		reg:     nil,
		objects: make(map[int64]*tensor.Tensor),
		tags:    make(map[string][]int64),
		plans:   make(map[int64]*plan.Plan),
		peers:   make(map[string]*Worker),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.reg == nil {
		w.reg = ops.Default()
	}
	return w
}

// ID returns the worker's identity.
func (w *Worker) ID() string { return w.id }

// Connect makes another in-process worker reachable for communication
// actions, both ways.
func (w *Worker) Connect(other *Worker) {
	w.mu.Lock()
	w.peers[other.id] = other
	w.mu.Unlock()
	other.mu.Lock()
	other.peers[w.id] = w
	other.mu.Unlock()
}

// TensorRef is a handle to a tensor held by a worker. It satisfies both
// the argument side (plan.ObjectRef) and the result side (plan.Result) of
// the pointer boundary.
type TensorRef struct {
	id int64
	w  *Worker
}

// ObjectID returns the stored object's identifier.
func (r *TensorRef) ObjectID() int64 { return r.id }

// Location returns the holding worker's identity.
func (r *TensorRef) Location() string { return r.w.id }

// Get retrieves the referenced tensor from the holding worker.
func (r *TensorRef) Get(ctx context.Context) (*tensor.Tensor, error) {
	return r.w.Object(r.id)
}

// Put stores a tensor on the worker and returns a reference to it.
func (w *Worker) Put(ctx context.Context, t *tensor.Tensor, tags ...string) *TensorRef {
	id := objectCounter.Add(1)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[id] = t
	for _, tag := range tags {
		w.tags[tag] = append(w.tags[tag], id)
	}
	ctxlog.FromContext(ctx).Debug("Stored tensor.", "worker", w.id, "objectID", id, "tags", tags)
	return &TensorRef{id: id, w: w}
}

// Object returns a stored tensor by ID.
func (w *Worker) Object(id int64) (*tensor.Tensor, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.objects[id]
	if !ok {
		return nil, fmt.Errorf("worker %s: no object %d", w.id, id)
	}
	return t, nil
}

// Ref builds a reference to an object held by this worker without
// checking existence; lookups fail at Get time.
func (w *Worker) Ref(id int64) *TensorRef {
	return &TensorRef{id: id, w: w}
}

// Search returns references to every stored tensor carrying the tag, in
// storage order.
func (w *Worker) Search(tag string) []*TensorRef {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := w.tags[tag]
	out := make([]*TensorRef, len(ids))
	for i, id := range ids {
		out[i] = &TensorRef{id: id, w: w}
	}
	return out
}

// Forget removes an object from the store.
func (w *Worker) Forget(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.objects, id)
	for tag, ids := range w.tags {
		kept := ids[:0]
		for _, oid := range ids {
			if oid != id {
				kept = append(kept, oid)
			}
		}
		w.tags[tag] = kept
	}
}
