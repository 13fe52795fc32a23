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

type BasicBlock struct {
    Id      int
    Name    string
    Phi     []*IrPhi
    Ins     []IrNode
    Term    IrTerminator
    Landing bool
    fn      *Func
}

func (self *BasicBlock) Ref() string {
    if self.Name != "" {
        return "%" + self.Name
    } else {
        return fmt.Sprintf("%%bb_%d", self.Id)
    }
}

func (self *BasicBlock) Func() *Func {
    return self.fn
}

// Successors returns the distinct successors of the block in terminator order.
func (self *BasicBlock) Successors() []*BasicBlock {
    var ret []*BasicBlock
    var vis map[*BasicBlock]bool

    /* unterminated blocks have no successors */
    if self.Term == nil {
        return nil
    }

    /* collect every successor once */
    for it := self.Term.Successors(); it.Next(); {
        if p := it.Block(); !vis[p] {
            if vis == nil {
                vis = make(map[*BasicBlock]bool)
            }
            vis[p] = true
            ret = append(ret, p)
        }
    }
    return ret
}

// NumNonDebug counts the Phi nodes, instructions and the terminator of the
// block, leaving out debug markers.
func (self *BasicBlock) NumNonDebug() int {
    n := len(self.Phi)
    for _, v := range self.Ins {
        if _, ok := v.(*IrDebug); !ok {
            n++
        }
    }
    if self.Term != nil {
        n++
    }
    return n
}

func (self *BasicBlock) setTerm(tr IrTerminator) {
    tr.setBlock(self)
    self.Term = tr
}

func (self *BasicBlock) insertAt(i int, ins IrNode) {
    ins.setBlock(self)
    self.Ins = append(self.Ins, nil)
    copy(self.Ins[i + 1:], self.Ins[i:])
    self.Ins[i] = ins
}

// RemoveInstr detaches ins from the block. Phi nodes are looked up in the
// Phi list, everything else in the instruction list.
func (self *BasicBlock) RemoveInstr(ins IrNode) {
    if p, ok := ins.(*IrPhi); ok {
        for i, v := range self.Phi {
            if v == p {
                self.Phi = append(self.Phi[:i], self.Phi[i + 1:]...)
                p.setBlock(nil)
                return
            }
        }
    } else {
        for i, v := range self.Ins {
            if v == ins {
                self.Ins = append(self.Ins[:i], self.Ins[i + 1:]...)
                ins.setBlock(nil)
                return
            }
        }
    }
    panic(fmt.Sprintf("instruction %q does not belong to block %s", ins, self.Ref()))
}

func (self *BasicBlock) String() string {
    buf := []string { self.Ref()[1:] + ":" }
    if self.Landing {
        buf[0] += " ; landing pad"
    }
    for _, v := range self.Phi {
        buf = append(buf, "    " + v.String())
    }
    for _, v := range self.Ins {
        buf = append(buf, "    " + v.String())
    }
    if self.Term != nil {
        buf = append(buf, "    " + self.Term.String())
    }
    return strings.Join(buf, "\n")
}
