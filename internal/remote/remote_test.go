package remote

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/planweave/internal/plan"
	"github.com/vk/planweave/internal/tensor"
	"github.com/vk/planweave/internal/trace"
	"github.com/vk/planweave/internal/worker"
)

// dialTestWorker serves a fresh worker over httptest and connects a client.
func dialTestWorker(t *testing.T, id string) (*worker.Worker, *Client) {
	t.Helper()
	w := worker.New(id)
	srv := httptest.NewServer(NewServer(w))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return w, c
}

func TestDialLearnsWorkerIdentity(t *testing.T) {
	_, c := dialTestWorker(t, "alice")
	assert.Equal(t, "alice", c.ID())
}

func TestPutGetObjectOverWire(t *testing.T) {
	ctx := context.Background()
	_, c := dialTestWorker(t, "alice")

	ref, err := c.Put(ctx, tensor.Vector(1, 2, 3), "input")
	require.NoError(t, err)
	assert.Equal(t, "alice", ref.Location())

	got, err := ref.(*remoteRef).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got.Data())

	_, err = (&remoteRef{c: c, id: 999999}).Get(ctx)
	assert.ErrorContains(t, err, "no object")
}

func TestSearchOverWire(t *testing.T) {
	ctx := context.Background()
	_, c := dialTestWorker(t, "alice")

	_, err := c.Put(ctx, tensor.Vector(1), "fed", "batch")
	require.NoError(t, err)
	_, err = c.Put(ctx, tensor.Vector(2), "fed")
	require.NoError(t, err)

	refs, err := c.Search(ctx, "fed")
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	none, err := c.Search(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSendCallFetchOverWire(t *testing.T) {
	ctx := context.Background()
	_, c := dialTestWorker(t, "alice")

	p, err := plan.NewFunc(ctx, "abs", func(tc *trace.Context, args ...*trace.Value) []*trace.Value {
		return []*trace.Value{args[0].Abs()}
	}, plan.WithArgShapes(tensor.Shape{1}))
	require.NoError(t, err)

	// The client is a plan.Destination; send works exactly as to a local
	// worker.
	ptr, err := p.Send(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ptr.Destinations())

	res, err := ptr.Call(ctx, tensor.Vector(-1, 2, -3))
	require.NoError(t, err)
	out, err := res.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, out.Data())

	// Call against data resident at the served worker.
	ref, err := c.Put(ctx, tensor.Vector(-8))
	require.NoError(t, err)
	res, err = ptr.Call(ctx, ref)
	require.NoError(t, err)
	out, err = res.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, out.Data())

	// Fetch the stored plan back through the wire.
	local := worker.New("bob")
	fetched, err := local.FetchPlan(ctx, p.ID(), c, true)
	require.NoError(t, err)
	got, err := fetched.CallOne(ctx, tensor.Vector(-4))
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, got.Data())
}

func TestCallPlanErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	_, c := dialTestWorker(t, "alice")

	_, err := c.CallPlan(ctx, 424242, []any{tensor.Vector(1)})
	assert.ErrorContains(t, err, "no plan")
}

func TestStorePlanRejectsGarbageOverWire(t *testing.T) {
	_, c := dialTestWorker(t, "alice")
	assert.Error(t, c.StorePlan(context.Background(), []byte{0xc1}))
}
