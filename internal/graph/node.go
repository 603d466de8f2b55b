package graph

import "fmt"

// Node is a processing stage. Connect routes this node's output into dst's
// input, where it is summed with dst's other inputs.
type Node interface {
	Connect(dst Node) error
	Disconnect()
	core() *node
}

type renderer interface {
	render(frame int64, t float64) float64
}

type node struct {
	ctx      *Context
	self     renderer
	inputs   []*node
	outputs  []*node
	frame    int64
	value    float64
	released bool
	sink     bool // accepts no outgoing connections
}

func (n *node) init(ctx *Context, self renderer) {
	n.ctx = ctx
	n.self = self
	n.frame = -1
}

func (n *node) core() *node { return n }

func (n *node) Connect(dst Node) error {
	d := dst.core()
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	switch {
	case d.ctx != n.ctx:
		return fmt.Errorf("%w: nodes belong to different contexts", ErrInvalidState)
	case n.sink:
		return fmt.Errorf("%w: destination has no output", ErrInvalidState)
	case n.released || d.released:
		return fmt.Errorf("%w: node already released", ErrInvalidState)
	}
	n.outputs = append(n.outputs, d)
	d.inputs = append(d.inputs, n)
	return nil
}

// Disconnect removes every outgoing connection.
func (n *node) Disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.disconnectOutputs()
}

func (n *node) disconnectOutputs() {
	for _, out := range n.outputs {
		out.inputs = remove(out.inputs, n)
	}
	n.outputs = nil
}

func (n *node) detach() {
	n.disconnectOutputs()
	for _, in := range n.inputs {
		in.outputs = remove(in.outputs, n)
	}
	n.inputs = nil
}

// pull renders the node once per frame. The frame is marked before
// rendering so a cycle without a delay reads the previous value.
func (n *node) pull(f int64, t float64) float64 {
	if n.frame == f {
		return n.value
	}
	n.frame = f
	n.value = n.self.render(f, t)
	return n.value
}

func (n *node) input(f int64, t float64) float64 {
	var sum float64
	for _, in := range n.inputs {
		sum += in.pull(f, t)
	}
	return sum
}

func remove(list []*node, n *node) []*node {
	for i, x := range list {
		if x == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Destination is the final mix bus of a Context.
type Destination struct{ node }

func (d *Destination) init(ctx *Context, self renderer) {
	d.node.init(ctx, self)
	d.sink = true
}

func (d *Destination) render(f int64, t float64) float64 { return d.input(f, t) }

// Inputs returns how many nodes currently feed the destination.
func (d *Destination) Inputs() int {
	d.ctx.mu.Lock()
	defer d.ctx.mu.Unlock()
	return len(d.inputs)
}
