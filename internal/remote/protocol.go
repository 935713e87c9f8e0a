// Package remote exposes a worker over a websocket connection. Frames are
// msgpack-encoded request/response pairs; the client side implements
// plan.Destination, so a plan cannot tell a networked worker from an
// in-process one. Transport failures propagate to the caller unchanged;
// retry policy, if any, lives above this boundary.
package remote

import (
	"github.com/vk/planweave/internal/tensor"
)

// Operation names of the worker protocol.
const (
	opHello     = "hello"
	opStorePlan = "store_plan"
	opCallPlan  = "call_plan"
	opPlanBlob  = "plan_blob"
	opPutObject = "put_object"
	opGetObject = "get_object"
	opSearch    = "search"
)

// wireArg is one call argument: either a tensor forwarded by value or a
// reference to an object the serving worker already holds.
type wireArg struct {
	ObjectID int64          `msgpack:"object_id,omitempty"`
	Tensor   *tensor.Tensor `msgpack:"tensor,omitempty"`
}

// request is a client-to-server frame.
type request struct {
	Op       string         `msgpack:"op"`
	PlanID   int64          `msgpack:"plan_id,omitempty"`
	Blob     []byte         `msgpack:"blob,omitempty"`
	Args     []wireArg      `msgpack:"args,omitempty"`
	ObjectID int64          `msgpack:"object_id,omitempty"`
	Tensor   *tensor.Tensor `msgpack:"tensor,omitempty"`
	Tags     []string       `msgpack:"tags,omitempty"`
	Tag      string         `msgpack:"tag,omitempty"`
}

// response is a server-to-client frame. Err is non-empty on failure.
type response struct {
	Err       string         `msgpack:"err,omitempty"`
	WorkerID  string         `msgpack:"worker_id,omitempty"`
	Blob      []byte         `msgpack:"blob,omitempty"`
	ObjectIDs []int64        `msgpack:"object_ids,omitempty"`
	Tensor    *tensor.Tensor `msgpack:"tensor,omitempty"`
}
