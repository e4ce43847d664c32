package vm

import "github.com/lumen-lang/lumen/internal/value"

// generatorIterator drives a generator function's own child VM one
// pull at a time (spec §4.8.5, §5 "Spawning a shared VM"). Calling a
// generator function never executes its body; the first Next() call
// lazily pushes its initial frame and the sub-VM's run() loop is then
// resumed (not restarted) on every following pull, since OpYield
// leaves the sub-VM's frames/ip exactly where execution should
// continue from.
type generatorIterator struct {
	vm      *VM
	fnVal   value.Value
	args    []value.Value
	started bool
	done    bool
}

func newGeneratorIterator(parent *VM, fnVal value.Value, args []value.Value) *generatorIterator {
	return &generatorIterator{vm: parent.childVM(), fnVal: fnVal, args: args}
}

func (g *generatorIterator) Next(eng value.Engine) (value.Value, bool, error) {
	if g.done {
		return value.Null, false, nil
	}
	if !g.started {
		g.started = true
		fn := g.fnVal.Obj.(*value.Function)
		if err := g.vm.pushClosureFrame(fn, g.args, 0, true); err != nil {
			g.done = true
			return value.Null, false, err
		}
	}
	v, halted, err := g.vm.run(0)
	if err != nil {
		g.done = true
		return value.Null, false, err
	}
	if halted {
		g.done = true
		return value.Null, false, nil
	}
	return v, true, nil
}
