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
    `strconv`
    `strings`
)

// Value is anything that can appear as an instruction operand. Values have
// reference identity, two operands are the same value iff they compare equal.
type Value interface {
    Ref() string
    Type() Type
    irvalue()
}

type Param struct {
    Id   int
    Name string
    Ty   Type
}

func (self *Param) Ref() string    { return "%" + self.Name }
func (self *Param) Type() Type     { return self.Ty }
func (self *Param) String() string { return self.Ty.String() + " " + self.Ref() }

// Global is a module-level value. Integer-typed globals are constants with an
// initializer, pointer-typed globals are memory cells for IrLoad and IrStore.
type Global struct {
    Name string
    Ty   Type
    Init int64
}

func (self *Global) Ref() string    { return "@" + self.Name }
func (self *Global) Type() Type     { return self.Ty }
func (self *Global) String() string { return fmt.Sprintf("@%s = global %s %d", self.Name, self.Ty, self.Init) }

// ConstInt is an integer constant, interned by Module.ConstInt.
type ConstInt struct {
    Ty Type
    V  int64
}

func (self *ConstInt) Ref() string    { return strconv.FormatInt(self.V, 10) }
func (self *ConstInt) Type() Type     { return self.Ty }
func (self *ConstInt) String() string { return self.Ty.String() + " " + self.Ref() }

func (*Param)        irvalue() {}
func (*Global)       irvalue() {}
func (*ConstInt)     irvalue() {}
func (*IrPhi)        irvalue() {}
func (*IrBinaryExpr) irvalue() {}
func (*IrCompare)    irvalue() {}
func (*IrLoad)       irvalue() {}

type IrNode interface {
    fmt.Stringer
    Block() *BasicBlock
    setBlock(bb *BasicBlock)
}

type IrUsages interface {
    IrNode
    Usages() []*Value
}

// IrDefinition is an instruction that produces a value.
type IrDefinition interface {
    IrNode
    Value
}

type _IrBase struct {
    bb *BasicBlock
}

func (self *_IrBase) Block() *BasicBlock {
    return self.bb
}

func (self *_IrBase) setBlock(bb *BasicBlock) {
    self.bb = bb
}

type _IrDef struct {
    Id   int
    Name string
    Ty   Type
}

func (self *_IrDef) Type() Type {
    return self.Ty
}

func (self *_IrDef) Ref() string {
    if self.Name != "" {
        return "%" + self.Name
    } else {
        return "%" + strconv.Itoa(self.Id)
    }
}

type IrBinaryOp uint8

const (
    IrOpAdd IrBinaryOp = iota
    IrOpSub
    IrOpMul
    IrOpAnd
    IrOpOr
    IrOpXor
    IrOpShl
    IrOpLShr
    IrOpAShr
)

var _BinaryOpNames = [...]string {
    IrOpAdd  : "add",
    IrOpSub  : "sub",
    IrOpMul  : "mul",
    IrOpAnd  : "and",
    IrOpOr   : "or",
    IrOpXor  : "xor",
    IrOpShl  : "shl",
    IrOpLShr : "lshr",
    IrOpAShr : "ashr",
}

func (self IrBinaryOp) String() string {
    return _BinaryOpNames[self]
}

type IrCmpOp uint8

const (
    IrCmpEq IrCmpOp = iota
    IrCmpNe
    IrCmpLt
    IrCmpLe
    IrCmpGt
    IrCmpGe
    IrCmpLtu
    IrCmpLeu
    IrCmpGtu
    IrCmpGeu
)

var _CmpOpNames = [...]string {
    IrCmpEq  : "eq",
    IrCmpNe  : "ne",
    IrCmpLt  : "slt",
    IrCmpLe  : "sle",
    IrCmpGt  : "sgt",
    IrCmpGe  : "sge",
    IrCmpLtu : "ult",
    IrCmpLeu : "ule",
    IrCmpGtu : "ugt",
    IrCmpGeu : "uge",
}

func (self IrCmpOp) String() string {
    return _CmpOpNames[self]
}

type IrPhiEdge struct {
    B *BasicBlock
    V Value
}

// IrPhi is a join node, it selects one of the incoming values depending on
// which predecessor control came from.
type IrPhi struct {
    _IrBase
    _IrDef
    In []IrPhiEdge
}

func (self *IrPhi) String() string {
    ret := make([]string, 0, len(self.In))
    for _, p := range self.In {
        ret = append(ret, fmt.Sprintf("[ %s, %s ]", p.V.Ref(), p.B.Ref()))
    }
    return fmt.Sprintf("%s = phi %s %s", self.Ref(), self.Ty, strings.Join(ret, ", "))
}

func (self *IrPhi) Usages() []*Value {
    ret := make([]*Value, 0, len(self.In))
    for i := range self.In { ret = append(ret, &self.In[i].V) }
    return ret
}

func (self *IrPhi) AddIncoming(bb *BasicBlock, v Value) {
    self.In = append(self.In, IrPhiEdge { B: bb, V: v })
}

// Incoming returns the value flowing in from bb, or nil if bb is not an
// incoming block of this node.
func (self *IrPhi) Incoming(bb *BasicBlock) Value {
    for _, p := range self.In {
        if p.B == bb {
            return p.V
        }
    }
    return nil
}

func (self *IrPhi) RemoveIncoming(bb *BasicBlock) {
    in := self.In[:0]
    for _, p := range self.In {
        if p.B != bb {
            in = append(in, p)
        }
    }
    self.In = in
}

func (self *IrPhi) ReplaceIncomingBlock(old *BasicBlock, bb *BasicBlock) {
    for i := range self.In {
        if self.In[i].B == old {
            self.In[i].B = bb
        }
    }
}

type IrBinaryExpr struct {
    _IrBase
    _IrDef
    X  Value
    Y  Value
    Op IrBinaryOp
}

func (self *IrBinaryExpr) String() string {
    return fmt.Sprintf("%s = %s %s %s, %s", self.Ref(), self.Op, self.Ty, self.X.Ref(), self.Y.Ref())
}

func (self *IrBinaryExpr) Usages() []*Value {
    return []*Value { &self.X, &self.Y }
}

type IrCompare struct {
    _IrBase
    _IrDef
    X  Value
    Y  Value
    Op IrCmpOp
}

func (self *IrCompare) String() string {
    return fmt.Sprintf("%s = icmp %s %s %s, %s", self.Ref(), self.Op, self.X.Type(), self.X.Ref(), self.Y.Ref())
}

func (self *IrCompare) Usages() []*Value {
    return []*Value { &self.X, &self.Y }
}

type IrLoad struct {
    _IrBase
    _IrDef
    Mem Value
}

func (self *IrLoad) String() string {
    return fmt.Sprintf("%s = load %s, %s", self.Ref(), self.Ty, self.Mem.Ref())
}

func (self *IrLoad) Usages() []*Value {
    return []*Value { &self.Mem }
}

type IrStore struct {
    _IrBase
    V   Value
    Mem Value
}

func (self *IrStore) String() string {
    return fmt.Sprintf("store %s %s, %s", self.V.Type(), self.V.Ref(), self.Mem.Ref())
}

func (self *IrStore) Usages() []*Value {
    return []*Value { &self.V, &self.Mem }
}

// IrDebug is a debug marker. It has no operands and no semantics, and is
// skipped whenever instructions are counted or compared.
type IrDebug struct {
    _IrBase
    Note string
}

func (self *IrDebug) String() string {
    return "debug " + strconv.Quote(self.Note)
}

type IrSuccessors interface {
    Next() bool
    Block() *BasicBlock
    Value() (int64, bool)
    UpdateBlock(to *BasicBlock)
}

type IrTerminator interface {
    IrNode
    Successors() IrSuccessors
    irterminator()
}

func (*IrJump)   irterminator() {}
func (*IrBranch) irterminator() {}
func (*IrSwitch) irterminator() {}
func (*IrReturn) irterminator() {}

type _SuccSlot struct {
    p  **BasicBlock
    v  int64
    ok bool
}

type _SlotSuccessors struct {
    i int
    s []_SuccSlot
}

func (self *_SlotSuccessors) Next() bool {
    if self.i >= len(self.s) {
        return false
    } else {
        self.i++
        return true
    }
}

func (self *_SlotSuccessors) Block() *BasicBlock {
    return *self.s[self.i - 1].p
}

func (self *_SlotSuccessors) Value() (int64, bool) {
    p := self.s[self.i - 1]
    return p.v, p.ok
}

func (self *_SlotSuccessors) UpdateBlock(to *BasicBlock) {
    *self.s[self.i - 1].p = to
}

type IrJump struct {
    _IrBase
    To *BasicBlock
}

func (self *IrJump) String() string {
    return "br " + self.To.Ref()
}

func (self *IrJump) Successors() IrSuccessors {
    return &_SlotSuccessors { s: []_SuccSlot {{ p: &self.To }} }
}

// IrBranch is a two-way conditional branch, control goes to Then if Cond
// is non-zero and to Else otherwise.
type IrBranch struct {
    _IrBase
    Cond Value
    Then *BasicBlock
    Else *BasicBlock
}

func (self *IrBranch) String() string {
    return fmt.Sprintf("br %s %s, %s, %s", self.Cond.Type(), self.Cond.Ref(), self.Then.Ref(), self.Else.Ref())
}

func (self *IrBranch) Usages() []*Value {
    return []*Value { &self.Cond }
}

func (self *IrBranch) Successors() IrSuccessors {
    return &_SlotSuccessors {
        s: []_SuccSlot {
            { p: &self.Then, v: 1, ok: true },
            { p: &self.Else, v: 0, ok: true },
        },
    }
}

type IrCase struct {
    V  int64
    To *BasicBlock
}

type IrSwitch struct {
    _IrBase
    V  Value
    Ln *BasicBlock
    Br []IrCase
}

func (self *IrSwitch) String() string {
    ret := make([]string, 0, len(self.Br))
    for _, c := range self.Br {
        ret = append(ret, fmt.Sprintf("%d: %s", c.V, c.To.Ref()))
    }
    return fmt.Sprintf("switch %s %s, %s [ %s ]", self.V.Type(), self.V.Ref(), self.Ln.Ref(), strings.Join(ret, ", "))
}

func (self *IrSwitch) Usages() []*Value {
    return []*Value { &self.V }
}

func (self *IrSwitch) Successors() IrSuccessors {
    ret := make([]_SuccSlot, 0, len(self.Br) + 1)
    for i := range self.Br { ret = append(ret, _SuccSlot { p: &self.Br[i].To, v: self.Br[i].V, ok: true }) }
    return &_SlotSuccessors { s: append(ret, _SuccSlot { p: &self.Ln }) }
}

type IrReturn struct {
    _IrBase
    V Value
}

func (self *IrReturn) String() string {
    if self.V == nil {
        return "ret void"
    } else {
        return fmt.Sprintf("ret %s %s", self.V.Type(), self.V.Ref())
    }
}

func (self *IrReturn) Usages() []*Value {
    if self.V == nil {
        return nil
    } else {
        return []*Value { &self.V }
    }
}

func (self *IrReturn) Successors() IrSuccessors {
    return &_SlotSuccessors{}
}
