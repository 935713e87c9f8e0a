package action

import "github.com/vk/planweave/internal/placeholder"

// Clone deep-copies an argument. Captured tensor literals are duplicated
// so a cloned graph never aliases the original's storage; cty literals are
// immutable and shared as-is.
func (a Argument) Clone() Argument {
	out := a
	if a.Tensor != nil {
		out.Tensor = a.Tensor.Clone()
	}
	if a.List != nil {
		out.List = make([]Argument, len(a.List))
		for i, elem := range a.List {
			out.List[i] = elem.Clone()
		}
	}
	return out
}

// Clone deep-copies a compute record.
func (c Compute) Clone() Compute {
	out := c
	if c.Target != nil {
		t := c.Target.Clone()
		out.Target = &t
	}
	out.Args = make([]Argument, len(c.Args))
	for i, a := range c.Args {
		out.Args[i] = a.Clone()
	}
	if c.Kwargs != nil {
		out.Kwargs = make(map[string]Argument, len(c.Kwargs))
		for k, a := range c.Kwargs {
			out.Kwargs[k] = a.Clone()
		}
	}
	out.Returns = append([]placeholder.ID(nil), c.Returns...)
	return out
}
