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

// Package scenario describes trap streams replayed on simulated CPUs.
//
// A scenario has a template stream that every CPU runs, and optional
// per-CPU streams that replace it for individual CPUs. Scenarios are read
// from TOML or YAML files.
package scenario

import (
	"fmt"

	"github.com/mohae/deepcopy"
	"gvisor.dev/trapframe/pkg/ring0"
)

// Scenario is a set of trap streams.
type Scenario struct {
	// Name is a human readable name.
	Name string `toml:"name" yaml:"name"`

	// CPUs is the number of CPUs to bring up. Zero means one.
	CPUs int `toml:"cpus" yaml:"cpus"`

	// StackSize is the exception stack size of each CPU. Zero leaves it to
	// the command line.
	StackSize uint64 `toml:"stack_size" yaml:"stack_size"`

	// Traps is the stream run by CPUs without an entry in PerCPU.
	Traps []Trap `toml:"trap" yaml:"traps"`

	// PerCPU replaces Traps for individual CPUs.
	PerCPU []Stream `toml:"cpu" yaml:"cpu"`
}

// Stream is the trap stream of one CPU.
type Stream struct {
	// ID is the CPU number.
	ID int `toml:"id" yaml:"id"`

	// Traps are taken in order.
	Traps []Trap `toml:"trap" yaml:"traps"`
}

// Trap is one exception episode.
type Trap struct {
	// Vector is the name of the exception vector, e.g. "El0SyncSVC".
	Vector string `toml:"vector" yaml:"vector"`

	// ESR is the syndrome. Zero picks a default for the vector.
	ESR uint64 `toml:"esr" yaml:"esr"`

	// Result is the value a system call handler leaves in x0.
	Result uint64 `toml:"result" yaml:"result"`

	// Clobber makes the handler overwrite every general-purpose register.
	Clobber bool `toml:"clobber" yaml:"clobber"`

	// Repeat is the number of times the episode is taken. Zero means once.
	Repeat int `toml:"repeat" yaml:"repeat"`

	// IRQ is the interrupt ID the handler acknowledges, e.g. 30 for the
	// generic timer. Only IRQ and FIQ vectors may set it.
	IRQ uint32 `toml:"irq" yaml:"irq"`

	// Nested are taken from inside the handler, before it returns.
	Nested []Trap `toml:"nested" yaml:"nested"`
}

// Vec returns the trap's vector. The trap must have been validated.
func (t *Trap) Vec() ring0.Vector {
	v, ok := ring0.VectorFromString(t.Vector)
	if !ok {
		panic(fmt.Sprintf("unknown vector %q", t.Vector))
	}
	return v
}

// maxIRQ bounds interrupt IDs; the GIC reserves 1020 to 1023.
const maxIRQ = 1020

// isInterrupt returns true for the vectors an interrupt controller signals.
func isInterrupt(v ring0.Vector) bool {
	switch v {
	case ring0.El0Irq, ring0.El0Fiq, ring0.El1Irq, ring0.El1Fiq:
		return true
	default:
		return false
	}
}

// Syndrome returns the trap's syndrome.
func (t *Trap) Syndrome() ring0.Syndrome {
	return ring0.Syndrome(t.ESR)
}

// defaultSyndrome returns the syndrome hardware reports for the vector when
// the scenario does not give one.
func defaultSyndrome(v ring0.Vector) ring0.Syndrome {
	switch v {
	case ring0.Syscall:
		return ring0.MakeSyndrome(ring0.ECSVC64, 0)
	case ring0.PageFault:
		return ring0.MakeSyndrome(ring0.ECDABTLow, 0)
	case ring0.El0SyncIa:
		return ring0.MakeSyndrome(ring0.ECIABTLow, 0)
	case ring0.El1SyncDa:
		return ring0.MakeSyndrome(ring0.ECDABTCur, 0)
	case ring0.El1SyncIa:
		return ring0.MakeSyndrome(ring0.ECIABTCur, 0)
	case ring0.El0SyncFpsimdAcc:
		return ring0.MakeSyndrome(ring0.ECFPAccess, 0)
	case ring0.El0SyncSveAcc:
		return ring0.MakeSyndrome(ring0.ECSVE, 0)
	case ring0.El0SyncSpPc, ring0.El1SyncSpPc:
		return ring0.MakeSyndrome(ring0.ECSPAlign, 0)
	case ring0.El0SyncDbg, ring0.El1SyncDbg:
		return ring0.MakeSyndrome(ring0.ECBRK64, 0)
	case ring0.El0SyncWfx:
		return ring0.MakeSyndrome(ring0.ECWFx, 0)
	default:
		return 0
	}
}

// NumCPUs returns the number of CPUs the scenario brings up.
func (s *Scenario) NumCPUs() int {
	if s.CPUs == 0 {
		return 1
	}
	return s.CPUs
}

// Validate checks the scenario for a machine with cpus CPUs.
func (s *Scenario) Validate(cpus int) error {
	if s.CPUs < 0 {
		return fmt.Errorf("cpus must be positive, got: %d", s.CPUs)
	}
	if cpus <= 0 {
		return fmt.Errorf("need at least one CPU, got: %d", cpus)
	}
	if err := validateTraps("trap", s.Traps); err != nil {
		return err
	}
	seen := make(map[int]bool)
	for i, st := range s.PerCPU {
		if st.ID < 0 || st.ID >= cpus {
			return fmt.Errorf("cpu[%d]: id %d out of range [0, %d)", i, st.ID, cpus)
		}
		if seen[st.ID] {
			return fmt.Errorf("cpu[%d]: duplicate id %d", i, st.ID)
		}
		seen[st.ID] = true
		if err := validateTraps(fmt.Sprintf("cpu[%d].trap", i), st.Traps); err != nil {
			return err
		}
	}
	return nil
}

func validateTraps(path string, traps []Trap) error {
	for i := range traps {
		t := &traps[i]
		p := fmt.Sprintf("%s[%d]", path, i)
		v, ok := ring0.VectorFromString(t.Vector)
		if !ok {
			return fmt.Errorf("%s: unknown vector %q", p, t.Vector)
		}
		if t.IRQ != 0 && !isInterrupt(v) {
			return fmt.Errorf("%s: irq %d set on non-interrupt vector %s", p, t.IRQ, v)
		}
		if t.IRQ >= maxIRQ {
			return fmt.Errorf("%s: irq %d out of range [0, %d)", p, t.IRQ, maxIRQ)
		}
		if t.Repeat < 0 {
			return fmt.Errorf("%s: repeat must be positive, got: %d", p, t.Repeat)
		}
		if err := validateTraps(p+".nested", t.Nested); err != nil {
			return err
		}
	}
	return nil
}

// MaxDepth returns the deepest nesting any CPU reaches, counting the
// outermost trap as one.
func (s *Scenario) MaxDepth() int {
	d := maxDepth(s.Traps)
	for _, st := range s.PerCPU {
		if sd := maxDepth(st.Traps); sd > d {
			d = sd
		}
	}
	return d
}

func maxDepth(traps []Trap) int {
	d := 0
	for i := range traps {
		if td := 1 + maxDepth(traps[i].Nested); td > d {
			d = td
		}
	}
	return d
}

// Streams returns the trap stream of each of cpus CPUs, with defaults
// filled in. Each stream is a private copy the caller may modify.
//
// Preconditions: Validate(cpus) returned nil.
func (s *Scenario) Streams(cpus int) [][]Trap {
	streams := make([][]Trap, cpus)
	own := make([]bool, cpus)
	for _, st := range s.PerCPU {
		streams[st.ID] = deepcopy.Copy(st.Traps).([]Trap)
		own[st.ID] = true
	}
	for id := range streams {
		if !own[id] {
			streams[id] = deepcopy.Copy(s.Traps).([]Trap)
		}
		fillDefaults(streams[id])
	}
	return streams
}

func fillDefaults(traps []Trap) {
	for i := range traps {
		t := &traps[i]
		if t.ESR == 0 {
			t.ESR = uint64(defaultSyndrome(t.Vec()))
		}
		if t.Repeat == 0 {
			t.Repeat = 1
		}
		fillDefaults(t.Nested)
	}
}
