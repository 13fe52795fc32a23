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
    `strings`
)

type _ConstKey struct {
    t Type
    v int64
}

// Module holds the globals shared by its functions, and interns constants.
type Module struct {
    Globals []*Global
    Funcs   []*Func
    consts  map[_ConstKey]*ConstInt
}

func NewModule() *Module {
    return &Module {
        consts: make(map[_ConstKey]*ConstInt),
    }
}

func (self *Module) CreateGlobal(name string, ty Type, init int64) *Global {
    if ty.IsVoid() {
        panic("global of void type: " + name)
    }
    ret := &Global { Name: name, Ty: ty, Init: ty.Wrap(init) }
    self.Globals = append(self.Globals, ret)
    return ret
}

// ConstInt returns the unique constant of type ty with value v truncated to
// the width of ty.
func (self *Module) ConstInt(ty Type, v int64) *ConstInt {
    if !ty.IsInt() {
        panic("non-integer constant type: " + ty.String())
    }

    /* check for existing constants */
    key := _ConstKey { t: ty, v: ty.Wrap(v) }
    ret, ok := self.consts[key]

    /* create a new one if not found */
    if !ok {
        ret = &ConstInt { Ty: key.t, V: key.v }
        self.consts[key] = ret
    }
    return ret
}

func (self *Module) CreateFunc(name string, ret Type) *Func {
    fn := &Func { Name: name, Ret: ret, Module: self }
    self.Funcs = append(self.Funcs, fn)
    return fn
}

func (self *Module) String() string {
    buf := make([]string, 0, len(self.Globals) + len(self.Funcs))
    for _, g := range self.Globals { buf = append(buf, g.String()) }
    for _, f := range self.Funcs { buf = append(buf, f.String()) }
    return strings.Join(buf, "\n\n")
}

// Func is a single function in SSA form. The function owns its blocks, the
// first block ever created is the entry block.
type Func struct {
    Name   string
    Ret    Type
    Params []*Param
    Entry  *BasicBlock
    Blocks []*BasicBlock
    Module *Module
    nval   int
    nblk   int
}

func (self *Func) AddParam(name string, ty Type) *Param {
    ret := &Param { Id: len(self.Params), Name: name, Ty: ty }
    self.Params = append(self.Params, ret)
    return ret
}

func (self *Func) newBlock(name string) *BasicBlock {
    self.nblk++
    bb := &BasicBlock { Id: self.nblk, Name: name, fn: self }

    /* the first block is the entry */
    if self.Entry == nil {
        self.Entry = bb
    }
    return bb
}

func (self *Func) newValueId() int {
    self.nval++
    return self.nval
}

// CreateBlock appends a new empty block to the function layout.
func (self *Func) CreateBlock(name string) *BasicBlock {
    bb := self.newBlock(name)
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// InsertBlockAfter creates a new empty block placed right after p in layout.
func (self *Func) InsertBlockAfter(p *BasicBlock, name string) *BasicBlock {
    i := self.blockIndex(p)
    bb := self.newBlock(name)

    /* insert into the block list */
    self.Blocks = append(self.Blocks, nil)
    copy(self.Blocks[i + 2:], self.Blocks[i + 1:])
    self.Blocks[i + 1] = bb
    return bb
}

func (self *Func) blockIndex(bb *BasicBlock) int {
    for i, p := range self.Blocks {
        if p == bb {
            return i
        }
    }
    panic(fmt.Sprintf("block %s does not belong to function %s", bb.Ref(), self.Name))
}

// Predecessors derives the predecessors of bb from the terminators of every
// block in the function. Each predecessor appears once, in layout order.
func (self *Func) Predecessors(bb *BasicBlock) []*BasicBlock {
    var ret []*BasicBlock
    for _, p := range self.Blocks {
        if p.Term != nil {
            for it := p.Term.Successors(); it.Next(); {
                if it.Block() == bb {
                    ret = append(ret, p)
                    break
                }
            }
        }
    }
    return ret
}

// Users returns every instruction that uses v, once per operand slot.
func (self *Func) Users(v Value) []IrNode {
    var ret []IrNode
    self.forEachUsage(func(ins IrNode, p *Value) {
        if *p == v {
            ret = append(ret, ins)
        }
    })
    return ret
}

// ReplaceAllUsesWith rewrites every operand referring to old into v, and
// returns the number of rewritten operands.
func (self *Func) ReplaceAllUsesWith(old Value, v Value) int {
    n := 0
    self.forEachUsage(func(_ IrNode, p *Value) {
        if *p == old {
            *p = v
            n++
        }
    })
    return n
}

func (self *Func) forEachUsage(action func(ins IrNode, p *Value)) {
    for _, bb := range self.Blocks {
        for _, v := range bb.Phi {
            for _, p := range v.Usages() {
                action(v, p)
            }
        }
        for _, v := range bb.Ins {
            if u, ok := v.(IrUsages); ok {
                for _, p := range u.Usages() {
                    action(v, p)
                }
            }
        }
        if u, ok := bb.Term.(IrUsages); ok {
            for _, p := range u.Usages() {
                action(bb.Term, p)
            }
        }
    }
}

// RemoveBlock detaches bb from the function and drops it from the Phi nodes
// of its successors. The entry block cannot be removed.
func (self *Func) RemoveBlock(bb *BasicBlock) {
    if bb == self.Entry {
        panic("cannot remove the entry block of " + self.Name)
    }

    /* remove from the block list */
    i := self.blockIndex(bb)
    self.Blocks = append(self.Blocks[:i], self.Blocks[i + 1:]...)

    /* drop all the incoming edges in successors */
    for _, p := range bb.Successors() {
        for _, phi := range p.Phi {
            phi.RemoveIncoming(bb)
        }
    }

    /* the block no longer belongs to any function */
    bb.fn = nil
}

// SplitBlock moves the instructions starting from index at, together with
// the terminator, into a new block placed after bb, and makes bb jump to it.
// Phi nodes in the successors are updated to come from the new block.
func (self *Func) SplitBlock(bb *BasicBlock, at int, name string) *BasicBlock {
    if bb.Term == nil {
        panic("cannot split an unterminated block: " + bb.Ref())
    }

    /* create the new block and move the instructions */
    tail := self.InsertBlockAfter(bb, name)
    tail.Ins = append([]IrNode(nil), bb.Ins[at:]...)
    bb.Ins = bb.Ins[:at:at]

    /* update the parent of the moved instructions */
    for _, v := range tail.Ins {
        v.setBlock(tail)
    }

    /* move the terminator */
    tail.setTerm(bb.Term)
    bb.setTerm(&IrJump { To: tail })

    /* update the Phi nodes of the successors */
    for _, p := range tail.Successors() {
        for _, phi := range p.Phi {
            phi.ReplaceIncomingBlock(bb, tail)
        }
    }
    return tail
}

// SplitBlockAndInsertIfThenElse splits bb at index at, and replaces the
// jump into the tail with a conditional branch on cond to two new empty
// blocks, both of which jump into the tail.
func (self *Func) SplitBlockAndInsertIfThenElse(bb *BasicBlock, at int, cond Value) (*BasicBlock, *BasicBlock, *BasicBlock) {
    tail := self.SplitBlock(bb, at, "")
    then := self.InsertBlockAfter(bb, "")
    els := self.InsertBlockAfter(then, "")

    /* build the diamond */
    then.setTerm(&IrJump { To: tail })
    els.setTerm(&IrJump { To: tail })
    bb.setTerm(&IrBranch { Cond: cond, Then: then, Else: els })
    return then, els, tail
}

func (self *Func) String() string {
    args := make([]string, 0, len(self.Params))
    for _, p := range self.Params {
        args = append(args, p.String())
    }

    /* function header */
    buf := []string {
        fmt.Sprintf("define %s @%s(%s) {", self.Ret, self.Name, strings.Join(args, ", ")),
    }

    /* dump every block */
    for i, bb := range self.Blocks {
        if i != 0 {
            buf = append(buf, "")
        }
        buf = append(buf, bb.String())
    }

    /* close the function body */
    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}
