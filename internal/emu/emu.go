/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package emu

import (
    `errors`
    `fmt`

    `github.com/cloudwego/bbdiv/ssa`
)

const (
    _DefaultSteps = 1 << 20
)

// ErrStepLimit is returned when a function does not return within the step
// budget of the emulator.
var ErrStepLimit = errors.New("emu: step limit exceeded")

// Emulator interprets SSA functions. Memory is a cell per pointer global,
// initialized from the global initializer and shared across calls.
type Emulator struct {
    Mem   map[*ssa.Global]int64
    Steps int
    vals  map[ssa.Value]int64
}

func NewEmulator() *Emulator {
    return &Emulator {
        Mem   : make(map[*ssa.Global]int64),
        Steps : _DefaultSteps,
    }
}

func (self *Emulator) load(v ssa.Value) int64 {
    switch r := v.(type) {
        case *ssa.ConstInt : return r.V
        case *ssa.Global   : if r.Ty.IsInt() { return r.Init } else { panic("emu: pointer global used as an integer: " + r.Ref()) }
        default            : if x, ok := self.vals[v]; ok { return x } else { panic("emu: use of undefined value " + v.Ref()) }
    }
}

func (self *Emulator) cell(v ssa.Value) *ssa.Global {
    if g, ok := v.(*ssa.Global); ok && g.Ty.IsPtr() {
        if _, ok = self.Mem[g]; !ok {
            self.Mem[g] = g.Init
        }
        return g
    } else {
        panic("emu: invalid memory operand " + v.Ref())
    }
}

// Run calls fn with the given arguments, and returns the returned value, or
// zero for void functions.
func (self *Emulator) Run(fn *ssa.Func, args ...int64) (int64, error) {
    var prev *ssa.BasicBlock
    var bb = fn.Entry

    /* bind the arguments */
    if len(args) != len(fn.Params) {
        return 0, fmt.Errorf("emu: @%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
    }

    /* initialize the value table */
    self.vals = make(map[ssa.Value]int64)
    for i, p := range fn.Params {
        self.vals[p] = p.Ty.Wrap(args[i])
    }

    /* execute until return */
    for n := 0; n < self.Steps; n++ {
        self.phis(bb, prev)

        /* execute the body */
        for _, v := range bb.Ins {
            self.exec(v)
        }

        /* check for returns */
        if rt, ok := bb.Term.(*ssa.IrReturn); ok {
            if rt.V == nil {
                return 0, nil
            } else {
                return self.load(rt.V), nil
            }
        }

        /* follow the edge */
        prev, bb = bb, self.branch(bb.Term)
    }
    return 0, ErrStepLimit
}

func (self *Emulator) phis(bb *ssa.BasicBlock, prev *ssa.BasicBlock) {
    var val []int64

    /* evaluate all Phi nodes before assigning any of them */
    for _, p := range bb.Phi {
        var v ssa.Value
        if v = p.Incoming(prev); v == nil {
            panic(fmt.Sprintf("emu: phi %s has no value for %s", p.Ref(), prev.Ref()))
        }
        val = append(val, self.load(v))
    }

    /* assign the results */
    for i, p := range bb.Phi {
        self.vals[p] = val[i]
    }
}

func (self *Emulator) exec(ins ssa.IrNode) {
    switch v := ins.(type) {
        case *ssa.IrBinaryExpr : self.vals[v] = v.Ty.Wrap(binop(v.Op, v.Ty, self.load(v.X), self.load(v.Y)))
        case *ssa.IrCompare    : self.vals[v] = b2i(compare(v.Op, v.X.Type(), self.load(v.X), self.load(v.Y)))
        case *ssa.IrLoad       : self.vals[v] = v.Ty.Wrap(self.Mem[self.cell(v.Mem)])
        case *ssa.IrStore      : self.Mem[self.cell(v.Mem)] = self.load(v.V)
        case *ssa.IrDebug      : break
        default                : panic("emu: invalid instruction: " + ins.String())
    }
}

func (self *Emulator) branch(tr ssa.IrTerminator) *ssa.BasicBlock {
    switch v := tr.(type) {
        case *ssa.IrJump: {
            return v.To
        }

        /* conditional branch */
        case *ssa.IrBranch: {
            if self.load(v.Cond) != 0 {
                return v.Then
            } else {
                return v.Else
            }
        }

        /* multi-way switch, compare as the switch type */
        case *ssa.IrSwitch: {
            x := self.load(v.V)
            for _, c := range v.Br {
                if v.V.Type().Wrap(c.V) == x {
                    return c.To
                }
            }
            return v.Ln
        }

        /* should not happen */
        default: {
            panic("emu: invalid terminator: " + tr.String())
        }
    }
}

func binop(op ssa.IrBinaryOp, ty ssa.Type, x int64, y int64) int64 {
    switch op {
        case ssa.IrOpAdd  : return x + y
        case ssa.IrOpSub  : return x - y
        case ssa.IrOpMul  : return x * y
        case ssa.IrOpAnd  : return x & y
        case ssa.IrOpOr   : return x | y
        case ssa.IrOpXor  : return x ^ y
        case ssa.IrOpShl  : return x << shamt(ty, y)
        case ssa.IrOpLShr : return int64(ty.Unsigned(x) >> shamt(ty, y))
        case ssa.IrOpAShr : return x >> shamt(ty, y)
        default           : panic("emu: invalid binary operator")
    }
}

func shamt(ty ssa.Type, y int64) uint64 {
    return ty.Unsigned(y) % uint64(ty.Bits)
}

func compare(op ssa.IrCmpOp, ty ssa.Type, x int64, y int64) bool {
    switch op {
        case ssa.IrCmpEq  : return x == y
        case ssa.IrCmpNe  : return x != y
        case ssa.IrCmpLt  : return x < y
        case ssa.IrCmpLe  : return x <= y
        case ssa.IrCmpGt  : return x > y
        case ssa.IrCmpGe  : return x >= y
        case ssa.IrCmpLtu : return ty.Unsigned(x) < ty.Unsigned(y)
        case ssa.IrCmpLeu : return ty.Unsigned(x) <= ty.Unsigned(y)
        case ssa.IrCmpGtu : return ty.Unsigned(x) > ty.Unsigned(y)
        case ssa.IrCmpGeu : return ty.Unsigned(x) >= ty.Unsigned(y)
        default           : panic("emu: invalid comparison operator")
    }
}

func b2i(v bool) int64 {
    if v {
        return 1
    } else {
        return 0
    }
}
