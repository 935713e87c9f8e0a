package remote

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/worker"
)

// Server serves one worker over websocket connections.
type Server struct {
	w        *worker.Worker
	upgrader websocket.Upgrader
}

// NewServer wraps a worker for serving.
func NewServer(w *worker.Worker) *Server {
	return &Server{w: w}
}

// ServeHTTP upgrades the connection and answers protocol frames until the
// peer disconnects.
func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := ctxlog.FromContext(ctx).With("worker", s.w.ID())

	conn, err := s.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed.", "error", err)
		return
	}
	defer conn.Close()
	logger.Debug("Client connected.", "remote", conn.RemoteAddr().String())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("Client disconnected.", "error", err)
			return
		}
		var frame request
		if err := msgpack.Unmarshal(raw, &frame); err != nil {
			logger.Warn("Dropping undecodable frame.", "error", err)
			return
		}

		resp := s.handle(ctx, &frame)
		out, err := msgpack.Marshal(resp)
		if err != nil {
			logger.Error("Encoding response failed.", "error", err)
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			logger.Debug("Write failed, closing connection.", "error", err)
			return
		}
	}
}

// handle dispatches one frame against the wrapped worker.
func (s *Server) handle(ctx context.Context, frame *request) *response {
	switch frame.Op {
	case opHello:
		return &response{WorkerID: s.w.ID()}

	case opStorePlan:
		if err := s.w.StorePlan(ctx, frame.Blob); err != nil {
			return &response{Err: err.Error()}
		}
		return &response{WorkerID: s.w.ID()}

	case opPlanBlob:
		blob, err := s.w.PlanBlob(ctx, frame.PlanID)
		if err != nil {
			return &response{Err: err.Error()}
		}
		return &response{Blob: blob}

	case opCallPlan:
		args := make([]any, len(frame.Args))
		for i, a := range frame.Args {
			if a.Tensor != nil {
				args[i] = a.Tensor
			} else {
				args[i] = s.w.Ref(a.ObjectID)
			}
		}
		res, err := s.w.CallPlan(ctx, frame.PlanID, args)
		if err != nil {
			return &response{Err: err.Error()}
		}
		results := res.(*worker.Results)
		var ids []int64
		for _, ref := range results.Refs() {
			ids = append(ids, ref.ObjectID())
		}
		return &response{ObjectIDs: ids}

	case opPutObject:
		ref := s.w.Put(ctx, frame.Tensor, frame.Tags...)
		return &response{ObjectIDs: []int64{ref.ObjectID()}}

	case opGetObject:
		t, err := s.w.Object(frame.ObjectID)
		if err != nil {
			return &response{Err: err.Error()}
		}
		return &response{Tensor: t}

	case opSearch:
		var ids []int64
		for _, ref := range s.w.Search(frame.Tag) {
			ids = append(ids, ref.ObjectID())
		}
		return &response{ObjectIDs: ids}

	default:
		return &response{Err: "unknown operation " + frame.Op}
	}
}
