// Package plan wraps a traceable callable into a replayable execution
// graph: built once by tracing, callable any number of times locally, and
// sendable to remote workers as serialized actions instead of source code.
//
// A plan composes a procedure (the recorded actions), a state container
// (persistent tensors), and a pointer cache keyed by destination set.
// Model-style usage is composition too: any struct whose forward body is
// expressed as a Callable gets plan behavior by owning a Plan, there is no
// base type to inherit from.
package plan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/vk/planweave/internal/action"
	"github.com/vk/planweave/internal/ctxlog"
	"github.com/vk/planweave/internal/ops"
	"github.com/vk/planweave/internal/placeholder"
	"github.com/vk/planweave/internal/procedure"
	"github.com/vk/planweave/internal/state"
	"github.com/vk/planweave/internal/tensor"
	"github.com/vk/planweave/internal/trace"
)

// Status is the build lifecycle of a plan.
type Status int32

const (
	// Unbuilt means no trace pass has completed yet.
	Unbuilt Status = iota
	// Building is the transient state while the single trace pass runs.
	Building
	// Built means the plan has a replayable procedure.
	Built
)

var (
	// ErrUnbuilt reports an operation that needs a completed build, such
	// as send, on a plan that never built. Send never triggers a build.
	ErrUnbuilt = errors.New("plan: unbuilt plan cannot be sent")
	// ErrAlreadyBuilt reports a second explicit build.
	ErrAlreadyBuilt = errors.New("plan: already built")
	// ErrNoCallable reports a call on an unbuilt plan whose callable is
	// gone (after send or fetch), leaving nothing to build from.
	ErrNoCallable = errors.New("plan: no callable available to build from")
)

// defaultReplaySeed seeds each call's execution environment. A recorded
// manual_seed action overrides it in replay order.
const defaultReplaySeed = 1

// Plan is the aggregate: recorded procedure, state, build status, the
// original callable (until send), and the per-destination-set pointer
// cache.
type Plan struct {
	id   int64
	name string
	tags []string

	reg       *ops.Registry
	argShapes []tensor.Shape

	// buildMu serializes implicit builds triggered by concurrent first
	// calls, so only one of them traces.
	buildMu sync.Mutex

	mu       sync.Mutex
	status   Status
	forward  trace.Callable
	proc     *procedure.Procedure
	st       *state.State
	pointers map[string]*Pointer
}

type options struct {
	shapes []tensor.Shape
	st     *state.State
	tags   []string
	reg    *ops.Registry
}

// Option configures plan construction.
type Option func(*options)

// WithArgShapes declares one shape per formal argument. Declaring shapes
// makes the build eager: the plan traces immediately against example
// tensors minted from the shapes, without needing real data.
func WithArgShapes(shapes ...tensor.Shape) Option {
	return func(o *options) { o.shapes = shapes }
}

// WithState binds persistent tensors readable inside the traced body.
func WithState(tensors ...*tensor.Tensor) Option {
	return func(o *options) { o.st = state.New(tensors...) }
}

// WithTags attaches searchable tags to the plan.
func WithTags(tags ...string) Option {
	return func(o *options) { o.tags = tags }
}

// WithRegistry dispatches against a custom operation registry instead of
// the builtin set.
func WithRegistry(reg *ops.Registry) Option {
	return func(o *options) { o.reg = reg }
}

// NewFunc wraps a callable into a plan. Declared shapes are validated
// immediately; an invalid shape is a configuration error reported here,
// before any tracing. If shapes are declared the plan builds eagerly.
func NewFunc(ctx context.Context, name string, fn trace.Callable, opts ...Option) (*Plan, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	for i, s := range o.shapes {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("plan %s: argument %d: %w", name, i, err)
		}
	}
	reg := o.reg
	if reg == nil {
		reg = ops.Default()
	}
	st := o.st
	if st == nil {
		st = state.New()
	}
	p := &Plan{
		id:        rand.Int63(),
		name:      name,
		tags:      o.tags,
		reg:       reg,
		argShapes: o.shapes,
		forward:   fn,
		st:        st,
		pointers:  make(map[string]*Pointer),
	}
	if len(o.shapes) > 0 {
		examples := make([]*tensor.Tensor, len(o.shapes))
		for i, s := range o.shapes {
			examples[i] = tensor.Zeros(s.Materialize()...)
		}
		if err := p.Build(ctx, examples...); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ID returns the plan's process-unique identifier.
func (p *Plan) ID() int64 { return p.id }

// Name returns the plan's human-readable name.
func (p *Plan) Name() string { return p.name }

// Tags returns the plan's searchable tags.
func (p *Plan) Tags() []string { return append([]string(nil), p.tags...) }

// IsBuilt reports whether a trace pass has completed.
func (p *Plan) IsBuilt() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status == Built
}

// Actions returns the recorded action list. Empty until built.
func (p *Plan) Actions() []action.Compute {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc == nil {
		return nil
	}
	return append([]action.Compute(nil), p.proc.Actions...)
}

// State returns the plan's state container.
func (p *Plan) State() *state.State { return p.st }

// Build runs the single trace pass against the given example arguments.
// On failure the plan stays unbuilt and no partial action list is kept.
func (p *Plan) Build(ctx context.Context, args ...*tensor.Tensor) error {
	p.mu.Lock()
	switch p.status {
	case Built:
		p.mu.Unlock()
		return ErrAlreadyBuilt
	case Building:
		p.mu.Unlock()
		return fmt.Errorf("plan %s: trace pass already in progress", p.name)
	}
	if p.forward == nil {
		p.mu.Unlock()
		return ErrNoCallable
	}
	fn := p.forward
	p.status = Building
	p.mu.Unlock()

	// The traced body is user code and may panic. Unless the build
	// committed, restore Unbuilt on every exit path so the plan never
	// stays wedged in Building.
	committed := false
	defer func() {
		if committed {
			return
		}
		p.mu.Lock()
		p.status = Unbuilt
		p.mu.Unlock()
	}()

	logger := ctxlog.FromContext(ctx).With("plan", p.name)
	logger.Debug("Building plan.", "args", len(args))
	proc, err := trace.Run(ctx, p.reg, p.st, args, fn)
	if err != nil {
		return fmt.Errorf("plan %s: build failed: %w", p.name, err)
	}

	p.mu.Lock()
	p.proc = proc
	p.status = Built
	committed = true
	p.mu.Unlock()
	logger.Debug("Plan built.", "actions", len(proc.Actions))
	return nil
}

// Call replays the recorded procedure against concrete arguments. An
// unbuilt plan with its callable still present builds transparently first.
// Bindings are call-scoped, so concurrent calls on the same built plan do
// not interfere.
func (p *Plan) Call(ctx context.Context, args ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !p.IsBuilt() {
		p.buildMu.Lock()
		if !p.IsBuilt() {
			// A concurrent first call may have won the build between the
			// status check and here; its procedure serves this call too.
			if err := p.Build(ctx, args...); err != nil && !errors.Is(err, ErrAlreadyBuilt) {
				p.buildMu.Unlock()
				return nil, err
			}
		}
		p.buildMu.Unlock()
	}

	p.mu.Lock()
	proc := p.proc
	st := p.st
	p.mu.Unlock()

	// Declared shapes guide example minting at build time; replay only
	// checks arity. A wildcard build with shape (1,) must accept longer
	// tensors at call time.
	if len(args) != len(proc.InputIDs) {
		return nil, fmt.Errorf("plan %s: got %d arguments, recorded %d input placeholders", p.name, len(args), len(proc.InputIDs))
	}
	logger := ctxlog.FromContext(ctx)
	for i, s := range p.argShapes {
		if i < len(args) && !s.Matches(args[i].Shape()) {
			logger.Debug("Argument shape differs from declaration.", "plan", p.name, "arg", i, "declared", []int(s), "got", args[i].Shape())
		}
	}

	bindings := make(map[placeholder.ID]*tensor.Tensor, len(args)+st.Len())
	for i, id := range proc.InputIDs {
		bindings[id] = args[i]
	}
	stateIDs := st.IDs()
	for i, t := range st.Read() {
		bindings[stateIDs[i]] = t
	}

	return proc.Execute(ctx, p.reg, ops.NewEnv(defaultReplaySeed), bindings)
}

// CallOne is Call for single-output plans.
func (p *Plan) CallOne(ctx context.Context, args ...*tensor.Tensor) (*tensor.Tensor, error) {
	outs, err := p.Call(ctx, args...)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, fmt.Errorf("plan %s: produced %d outputs, expected 1", p.name, len(outs))
	}
	return outs[0], nil
}

// String renders a short description for logs.
func (p *Plan) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	if p.proc != nil {
		n = len(p.proc.Actions)
	}
	return fmt.Sprintf("Plan %s id=%d built=%t actions=%d", p.name, p.id, p.status == Built, n)
}
