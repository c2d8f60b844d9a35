// Copyright 2020 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package replay runs scenario trap streams on simulated CPUs and checks
// that every exception returns with the registers the return path promises.
package replay

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/log"
	"gvisor.dev/trapframe/pkg/metric"
	"gvisor.dev/trapframe/pkg/ring0"
	"gvisor.dev/trapframe/trapsim/percpu"
	"gvisor.dev/trapframe/trapsim/scenario"
)

const (
	// areaRegion is where per-CPU areas are laid out.
	areaRegion hostarch.Addr = 0xffff_8000_0010_0000

	// AreaSize is the size of each CPU's private area.
	AreaSize = 2 * hostarch.PageSize

	// clobberPattern is written to registers by clobbering handlers.
	clobberPattern = 0xdead_beef_0000_0000
)

var (
	// trapsTaken counts exceptions by the path they returned through.
	trapsTaken = metric.MustCreateNewUint64Metric("/trapsim/traps", "Exceptions taken, by return path.",
		metric.NewField("return_path", []string{ring0.FastReturn.String(), ring0.FullReturn.String()}))

	// nestedTraps counts exceptions taken from inside a handler.
	nestedTraps = metric.MustCreateNewUint64Metric("/trapsim/nested_traps", "Exceptions taken while another exception was being handled.")
)

// Result summarizes the replay of one CPU's stream.
type Result struct {
	// CPU is the CPU number.
	CPU int

	// Offset is the CPU's offset slot value.
	Offset uintptr

	// Traps is the number of exceptions taken, nested ones included.
	Traps uint64

	// Fast and Full count exceptions by return path.
	Fast uint64
	Full uint64

	// Syscalls and Exceptions are read from the CPU's private area.
	Syscalls   uint64
	Exceptions uint64

	// MaxDepth is the deepest nesting reached.
	MaxDepth int
}

// Machine is a set of simulated CPUs sharing a kernel.
type Machine struct {
	// Kernel is the shared kernel.
	Kernel *ring0.Kernel

	// CPUs are indexed by CPU number.
	CPUs []*ring0.CPU

	// Areas are the CPUs' private areas.
	Areas *percpu.Areas
}

// NewMachine brings up n CPUs. Each CPU's offset slot is set to the base of
// its private area.
func NewMachine(opts ring0.KernelOpts, n int) (*Machine, error) {
	if n <= 0 {
		return nil, fmt.Errorf("need at least one CPU, got: %d", n)
	}
	areas, err := percpu.Layout(areaRegion, AreaSize, n)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		Kernel: ring0.New(opts),
		Areas:  areas,
	}
	areas.ForEach(func(a *percpu.Area) {
		c := m.Kernel.NewCPU(nil)
		if c.ID() != a.CPU {
			panic(fmt.Sprintf("CPU %d brought up for area %v", c.ID(), a))
		}
		c.SetThisCPUOffset(uintptr(a.Base))
		m.CPUs = append(m.CPUs, c)
	})
	log.Debugf("Brought up %d CPUs with %#x byte stacks", n, m.Kernel.StackSize())
	return m, nil
}

// Run replays streams[i] on CPU i. CPUs run concurrently. The first
// contract violation stops every CPU and is returned.
func (m *Machine) Run(ctx context.Context, streams [][]scenario.Trap) ([]Result, error) {
	if len(streams) != len(m.CPUs) {
		return nil, fmt.Errorf("got %d streams for %d CPUs", len(streams), len(m.CPUs))
	}
	results := make([]Result, len(m.CPUs))
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range m.CPUs {
		r := &replayer{
			cpu:   c,
			areas: m.Areas,
		}
		stream := streams[i]
		g.Go(func() error {
			res, err := r.run(ctx, stream)
			results[c.ID()] = res
			if err != nil {
				return fmt.Errorf("cpu %d: %w", c.ID(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// replayer is the hooks of one CPU during a replay.
type replayer struct {
	cpu   *ring0.CPU
	areas *percpu.Areas

	// pending are the traps being handled, innermost last.
	pending []*scenario.Trap

	// err is the first violation found.
	err error

	result Result
}

func (r *replayer) fail(format string, v ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, v...)
	}
}

func (r *replayer) run(ctx context.Context, stream []scenario.Trap) (Result, error) {
	c := r.cpu
	c.SetHooks(r)
	defer c.SetHooks(nil)

	r.result = Result{
		CPU:    c.ID(),
		Offset: c.ThisCPUOffset(),
	}
	for i := range stream {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		r.take(&stream[i])
		if r.err != nil {
			return r.result, fmt.Errorf("trap %d (%s): %w", i, stream[i].Vector, r.err)
		}
	}
	if a, ok := r.areas.Lookup(hostarch.Addr(r.result.Offset)); ok {
		r.result.Syscalls = a.Syscalls.Load()
		r.result.Exceptions = a.Exceptions.Load()
	}
	return r.result, nil
}

// take takes t, with its repeats, and checks the registers after each return.
func (r *replayer) take(t *scenario.Trap) {
	c := r.cpu
	vector, esr := t.Vec(), t.Syndrome()
	wantPath := ring0.FullReturn
	if ring0.IsSyscall(vector, esr) {
		wantPath = ring0.FastReturn
	}

	for i := 0; i < t.Repeat && r.err == nil; i++ {
		before := *c.Registers()
		depth := c.Depth()

		r.pending = append(r.pending, t)
		path := c.Trap(vector, esr)
		r.pending = r.pending[:len(r.pending)-1]

		trapsTaken.Increment(path.String())
		if depth > 0 {
			nestedTraps.Increment()
		}
		r.result.Traps++
		if path == ring0.FastReturn {
			r.result.Fast++
		} else {
			r.result.Full++
		}

		if path != wantPath {
			r.fail("%v with %v returned through the %v path, want %v", vector, esr, path, wantPath)
			return
		}
		want := before
		if path == ring0.FastReturn {
			want.Regs[0] = t.Result
		}
		if got := *c.Registers(); !cmp.Equal(want, got) {
			r.fail("%v returned through the %v path with wrong registers (-want +got):\n%s", vector, path, cmp.Diff(want, got))
			return
		}
		if c.Depth() != depth {
			r.fail("%v returned at depth %d, want %d", vector, c.Depth(), depth)
			return
		}
		if t.IRQ != 0 {
			log.Debugf("CPU %d: %v for IRQ %d returned through the %v path at depth %d", c.ID(), vector, t.IRQ, path, depth)
			continue
		}
		log.Debugf("CPU %d: %v (%v) returned through the %v path at depth %d", c.ID(), vector, esr.Class(), path, depth)
	}
}

// handle is the body shared by both hooks.
func (r *replayer) handle(c *ring0.CPU, syscall bool) *scenario.Trap {
	t := r.pending[len(r.pending)-1]

	a, ok := r.areas.Lookup(hostarch.Addr(c.ThisCPUOffset()))
	switch {
	case !ok:
		r.fail("offset %#x is not in any per-CPU area", c.ThisCPUOffset())
	case a.CPU != c.ID():
		r.fail("offset %#x belongs to %v", c.ThisCPUOffset(), a)
	default:
		if syscall {
			a.Syscalls.Add(1)
		} else {
			a.Exceptions.Add(1)
		}
		a.NoteDepth(c.Depth())
	}
	if c.Depth() > r.result.MaxDepth {
		r.result.MaxDepth = c.Depth()
	}

	if t.Clobber {
		regs := c.Registers()
		for i := range regs.Regs {
			regs.Regs[i] = clobberPattern | uint64(c.Depth())<<8 | uint64(i)
		}
	}
	for i := range t.Nested {
		if r.err != nil {
			break
		}
		r.take(&t.Nested[i])
	}
	return t
}

// KernelSyscall implements ring0.Hooks.KernelSyscall.
func (r *replayer) KernelSyscall(c *ring0.CPU) {
	t := r.handle(c, true)
	c.Registers().SetReturnValue(t.Result)
}

// KernelException implements ring0.Hooks.KernelException.
func (r *replayer) KernelException(c *ring0.CPU, _ ring0.Vector) {
	r.handle(c, false)
}
