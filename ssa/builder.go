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

package ssa

import (
    `fmt`
)

// Builder creates instructions inside a basic block. By default instructions
// are appended, NewBuilderAt places them at a fixed position instead. Phi
// nodes always go to the Phi list of the block.
type Builder struct {
    bb   *BasicBlock
    at   int
    name string
}

func NewBuilder(bb *BasicBlock) *Builder {
    return &Builder { bb: bb, at: -1 }
}

func NewBuilderAt(bb *BasicBlock, at int) *Builder {
    return &Builder { bb: bb, at: at }
}

func (self *Builder) Block() *BasicBlock {
    return self.bb
}

// Name sets the name of the next value created by this builder.
func (self *Builder) Name(name string) *Builder {
    self.name = name
    return self
}

func (self *Builder) def(ty Type) _IrDef {
    name := self.name
    self.name = ""
    return _IrDef { Id: self.bb.fn.newValueId(), Name: name, Ty: ty }
}

func (self *Builder) insert(ins IrNode) {
    if self.at < 0 {
        ins.setBlock(self.bb)
        self.bb.Ins = append(self.bb.Ins, ins)
    } else {
        self.bb.insertAt(self.at, ins)
        self.at++
    }
}

// Insert places a detached instruction, such as one returned by CloneInstr,
// into the block.
func (self *Builder) Insert(ins IrNode) {
    if p, ok := ins.(*IrPhi); ok {
        p.setBlock(self.bb)
        self.bb.Phi = append(self.bb.Phi, p)
    } else if _, ok = ins.(IrTerminator); ok {
        panic("cannot insert a terminator: " + ins.String())
    } else {
        self.insert(ins)
    }
}

func (self *Builder) terminate(tr IrTerminator) {
    if self.bb.Term != nil {
        panic("block already terminated: " + self.bb.Ref())
    }
    self.bb.setTerm(tr)
}

func checkInts(x Value, y Value) {
    if !x.Type().IsInt() || x.Type() != y.Type() {
        panic(fmt.Sprintf("operand type mismatch: %s and %s", x.Type(), y.Type()))
    }
}

func (self *Builder) BinOp(op IrBinaryOp, x Value, y Value) *IrBinaryExpr {
    checkInts(x, y)
    ins := &IrBinaryExpr { _IrDef: self.def(x.Type()), X: x, Y: y, Op: op }
    self.insert(ins)
    return ins
}

func (self *Builder) Add(x Value, y Value) *IrBinaryExpr { return self.BinOp(IrOpAdd, x, y) }
func (self *Builder) Sub(x Value, y Value) *IrBinaryExpr { return self.BinOp(IrOpSub, x, y) }
func (self *Builder) Mul(x Value, y Value) *IrBinaryExpr { return self.BinOp(IrOpMul, x, y) }

func (self *Builder) Cmp(op IrCmpOp, x Value, y Value) *IrCompare {
    checkInts(x, y)
    ins := &IrCompare { _IrDef: self.def(Int1), X: x, Y: y, Op: op }
    self.insert(ins)
    return ins
}

// IsNull compares v against the zero constant of its type.
func (self *Builder) IsNull(v Value) *IrCompare {
    return self.Cmp(IrCmpEq, v, self.bb.fn.Module.ConstInt(v.Type(), 0))
}

func (self *Builder) Load(ty Type, mem Value) *IrLoad {
    if !mem.Type().IsPtr() {
        panic("load from non-pointer value: " + mem.Ref())
    }
    ins := &IrLoad { _IrDef: self.def(ty), Mem: mem }
    self.insert(ins)
    return ins
}

func (self *Builder) Store(v Value, mem Value) *IrStore {
    if !mem.Type().IsPtr() {
        panic("store to non-pointer value: " + mem.Ref())
    }
    ins := &IrStore { V: v, Mem: mem }
    self.insert(ins)
    return ins
}

func (self *Builder) Debug(note string) *IrDebug {
    ins := &IrDebug { Note: note }
    self.insert(ins)
    return ins
}

func (self *Builder) Phi(ty Type, in ...IrPhiEdge) *IrPhi {
    ins := &IrPhi { _IrDef: self.def(ty), In: in }
    ins.setBlock(self.bb)
    self.bb.Phi = append(self.bb.Phi, ins)
    return ins
}

func (self *Builder) Jump(to *BasicBlock) *IrJump {
    tr := &IrJump { To: to }
    self.terminate(tr)
    return tr
}

func (self *Builder) Branch(cond Value, then *BasicBlock, els *BasicBlock) *IrBranch {
    if !cond.Type().IsInt() {
        panic("branch on non-integer value: " + cond.Ref())
    }
    tr := &IrBranch { Cond: cond, Then: then, Else: els }
    self.terminate(tr)
    return tr
}

func (self *Builder) Switch(v Value, ln *BasicBlock, br ...IrCase) *IrSwitch {
    if !v.Type().IsInt() {
        panic("switch on non-integer value: " + v.Ref())
    }
    tr := &IrSwitch { V: v, Ln: ln, Br: br }
    self.terminate(tr)
    return tr
}

func (self *Builder) Return(v Value) *IrReturn {
    tr := &IrReturn { V: v }
    self.terminate(tr)
    return tr
}
