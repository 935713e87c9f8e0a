package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/planweave/internal/plan"
	"github.com/vk/planweave/internal/tensor"
)

// Client is a connection to a served worker. It implements
// plan.Destination, so plans send to it exactly as to a local worker.
// Requests on one client are serialized; the protocol is strictly
// request/response.
type Client struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	workerID string
}

var _ plan.Destination = (*Client)(nil)

// Dial connects to a served worker and learns its identity.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: dialing %s: %w", url, err)
	}
	c := &Client{conn: conn}
	resp, err := c.roundTrip(&request{Op: opHello})
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.workerID = resp.WorkerID
	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ID returns the served worker's identity.
func (c *Client) ID() string { return c.workerID }

// roundTrip sends one frame and reads its response.
func (c *Client) roundTrip(frame *request) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := msgpack.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("remote: encoding %s: %w", frame.Op, err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		return nil, fmt.Errorf("remote: sending %s: %w", frame.Op, err)
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("remote: reading %s response: %w", frame.Op, err)
	}
	var resp response
	if err := msgpack.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("remote: decoding %s response: %w", frame.Op, err)
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("remote: %s: %s", frame.Op, resp.Err)
	}
	return &resp, nil
}

// StorePlan materializes a serialized plan at the served worker.
func (c *Client) StorePlan(ctx context.Context, blob []byte) error {
	_, err := c.roundTrip(&request{Op: opStorePlan, Blob: blob})
	return err
}

// PlanBlob fetches the serialized form of a stored plan.
func (c *Client) PlanBlob(ctx context.Context, planID int64) ([]byte, error) {
	resp, err := c.roundTrip(&request{Op: opPlanBlob, PlanID: planID})
	if err != nil {
		return nil, err
	}
	return resp.Blob, nil
}

// remoteRef references a tensor held by the served worker.
type remoteRef struct {
	c  *Client
	id int64
}

var (
	_ plan.ObjectRef = (*remoteRef)(nil)
	_ plan.Result    = (*remoteRef)(nil)
)

func (r *remoteRef) ObjectID() int64  { return r.id }
func (r *remoteRef) Location() string { return r.c.workerID }

// Get retrieves the referenced tensor over the wire.
func (r *remoteRef) Get(ctx context.Context) (*tensor.Tensor, error) {
	resp, err := r.c.roundTrip(&request{Op: opGetObject, ObjectID: r.id})
	if err != nil {
		return nil, err
	}
	return resp.Tensor, nil
}

// Put stores a tensor at the served worker and returns a reference.
func (c *Client) Put(ctx context.Context, t *tensor.Tensor, tags ...string) (plan.ObjectRef, error) {
	resp, err := c.roundTrip(&request{Op: opPutObject, Tensor: t, Tags: tags})
	if err != nil {
		return nil, err
	}
	if len(resp.ObjectIDs) != 1 {
		return nil, fmt.Errorf("remote: put_object returned %d ids", len(resp.ObjectIDs))
	}
	return &remoteRef{c: c, id: resp.ObjectIDs[0]}, nil
}

// Search returns references to the served worker's tensors carrying the
// tag.
func (c *Client) Search(ctx context.Context, tag string) ([]plan.ObjectRef, error) {
	resp, err := c.roundTrip(&request{Op: opSearch, Tag: tag})
	if err != nil {
		return nil, err
	}
	out := make([]plan.ObjectRef, len(resp.ObjectIDs))
	for i, id := range resp.ObjectIDs {
		out[i] = &remoteRef{c: c, id: id}
	}
	return out, nil
}

// CallPlan replays a stored plan remotely. The result stays at the served
// worker until retrieved.
func (c *Client) CallPlan(ctx context.Context, planID int64, args []any) (plan.Result, error) {
	frame := &request{Op: opCallPlan, PlanID: planID}
	for i, a := range args {
		switch x := a.(type) {
		case *tensor.Tensor:
			frame.Args = append(frame.Args, wireArg{Tensor: x})
		case plan.ObjectRef:
			frame.Args = append(frame.Args, wireArg{ObjectID: x.ObjectID()})
		default:
			return nil, fmt.Errorf("remote: unsupported argument type %T at position %d", a, i)
		}
	}
	resp, err := c.roundTrip(frame)
	if err != nil {
		return nil, err
	}
	if len(resp.ObjectIDs) != 1 {
		return nil, fmt.Errorf("remote: call produced %d outputs, single-output calls only over this client", len(resp.ObjectIDs))
	}
	return &remoteRef{c: c, id: resp.ObjectIDs[0]}, nil
}
