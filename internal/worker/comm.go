package worker

import (
	"context"
	"fmt"

	"github.com/vk/planweave/internal/action"
	"github.com/vk/planweave/internal/ctxlog"
)

// ApplyCommunication executes a pointer-level action against this worker's
// peer set. The source worker of the record must be this worker.
func (w *Worker) ApplyCommunication(ctx context.Context, act action.Communication) error {
	if act.Source != w.id {
		return fmt.Errorf("worker %s: communication action sourced at %s", w.id, act.Source)
	}
	logger := ctxlog.FromContext(ctx).With("worker", w.id, "verb", act.Verb, "objectID", act.ObjectID)

	switch act.Verb {
	case "move":
		t, err := w.Object(act.ObjectID)
		if err != nil {
			return err
		}
		for _, destID := range act.Destinations {
			dest, err := w.peer(destID)
			if err != nil {
				return err
			}
			dest.mu.Lock()
			dest.objects[act.ObjectID] = t
			dest.mu.Unlock()
			logger.Debug("Moved object.", "destination", destID)
		}
		w.Forget(act.ObjectID)
		return nil

	case "remote_send", "share", "share_":
		t, err := w.Object(act.ObjectID)
		if err != nil {
			return err
		}
		for _, destID := range act.Destinations {
			dest, err := w.peer(destID)
			if err != nil {
				return err
			}
			dest.mu.Lock()
			dest.objects[act.ObjectID] = t.Clone()
			dest.mu.Unlock()
			logger.Debug("Copied object.", "destination", destID)
		}
		return nil

	case "get", "remote_get", "mid_get":
		// Pull the object back from whichever destination holds it.
		for _, destID := range act.Destinations {
			dest, err := w.peer(destID)
			if err != nil {
				return err
			}
			t, err := dest.Object(act.ObjectID)
			if err != nil {
				continue
			}
			w.mu.Lock()
			w.objects[act.ObjectID] = t
			w.mu.Unlock()
			dest.Forget(act.ObjectID)
			logger.Debug("Retrieved object.", "from", destID)
			return nil
		}
		return fmt.Errorf("worker %s: object %d not found at any destination", w.id, act.ObjectID)

	default:
		return fmt.Errorf("worker %s: unsupported communication verb %q", w.id, act.Verb)
	}
}

func (w *Worker) peer(id string) (*Worker, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.peers[id]
	if !ok {
		return nil, fmt.Errorf("worker %s: no connected peer %s", w.id, id)
	}
	return p, nil
}
