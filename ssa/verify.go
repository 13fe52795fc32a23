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

// VerifyError occures when a function is not well-formed.
type VerifyError struct {
    Func   string
    Block  string
    Reason string
}

func (self VerifyError) Error() string {
    if self.Block == "" {
        return fmt.Sprintf("VerifyError(@%s): %s", self.Func, self.Reason)
    } else {
        return fmt.Sprintf("VerifyError(@%s, %s): %s", self.Func, self.Block, self.Reason)
    }
}

type _Verifier struct {
    fn   *Func
    live map[*BasicBlock]bool
    defs map[Value]*BasicBlock
}

func (self *_Verifier) fail(bb *BasicBlock, format string, args ...interface{}) error {
    ret := VerifyError { Func: self.fn.Name, Reason: fmt.Sprintf(format, args...) }
    if bb != nil {
        ret.Block = bb.Ref()
    }
    return ret
}

// Verify checks the structural well-formedness of fn: every block belongs to
// the function and is terminated, successors are blocks of the function, the
// entry has no predecessors, Phi nodes have exactly one incoming value per
// predecessor, and instruction operands are defined in the function.
func Verify(fn *Func) error {
    vf := &_Verifier {
        fn   : fn,
        live : make(map[*BasicBlock]bool, len(fn.Blocks)),
        defs : make(map[Value]*BasicBlock),
    }

    /* entry block must be present */
    if fn.Entry == nil || len(fn.Blocks) == 0 || fn.Blocks[0] != fn.Entry {
        return vf.fail(nil, "entry block must be the first block")
    }

    /* collect the blocks and their definitions */
    for _, bb := range fn.Blocks {
        if err := vf.block(bb); err != nil {
            return err
        }
    }

    /* check the edges and operands */
    for _, bb := range fn.Blocks {
        if err := vf.edges(bb); err != nil {
            return err
        }
        if err := vf.operands(bb); err != nil {
            return err
        }
    }
    return nil
}

func (self *_Verifier) block(bb *BasicBlock) error {
    if bb.fn != self.fn {
        return self.fail(bb, "block does not belong to the function")
    } else if self.live[bb] {
        return self.fail(bb, "block appears twice")
    } else if bb.Term == nil {
        return self.fail(bb, "block is not terminated")
    } else if bb.Term.Block() != bb {
        return self.fail(bb, "terminator does not belong to the block")
    }

    /* mark the block */
    self.live[bb] = true

    /* mark all Phi definitions */
    for _, v := range bb.Phi {
        if v.Block() != bb {
            return self.fail(bb, "phi %s does not belong to the block", v.Ref())
        }
        self.defs[v] = bb
    }

    /* mark all instruction definitions */
    for _, v := range bb.Ins {
        if v.Block() != bb {
            return self.fail(bb, "instruction %q does not belong to the block", v)
        } else if _, ok := v.(*IrPhi); ok {
            return self.fail(bb, "phi %s found in the instruction list", v)
        } else if d, ok := v.(IrDefinition); ok {
            self.defs[d] = bb
        }
    }
    return nil
}

func (self *_Verifier) edges(bb *BasicBlock) error {
    for _, p := range bb.Successors() {
        if !self.live[p] {
            return self.fail(bb, "branch to block %s outside of the function", p.Ref())
        } else if p == self.fn.Entry {
            return self.fail(bb, "branch to the entry block")
        }
    }

    /* no Phi nodes to check */
    if len(bb.Phi) == 0 {
        return nil
    }

    /* every Phi node must match the predecessors */
    pred := self.fn.Predecessors(bb)
    for _, v := range bb.Phi {
        if len(v.In) != len(pred) {
            return self.fail(bb, "phi %s has %d incoming values, but the block has %d predecessors", v.Ref(), len(v.In), len(pred))
        }
        for _, p := range pred {
            if v.Incoming(p) == nil {
                return self.fail(bb, "phi %s has no incoming value for %s", v.Ref(), p.Ref())
            }
        }
    }
    return nil
}

func (self *_Verifier) operands(bb *BasicBlock) error {
    var err error
    check := func(ins IrNode) {
        if u, ok := ins.(IrUsages); ok && err == nil {
            for _, p := range u.Usages() {
                if err = self.operand(bb, ins, *p); err != nil {
                    return
                }
            }
        }
    }

    /* check every instruction */
    for _, v := range bb.Phi { check(v) }
    for _, v := range bb.Ins { check(v) }
    check(bb.Term)
    return err
}

func (self *_Verifier) operand(bb *BasicBlock, ins IrNode, v Value) error {
    switch r := v.(type) {
        case nil: {
            return self.fail(bb, "nil operand in %T", ins)
        }

        /* parameters must belong to this function */
        case *Param: {
            if r.Id >= len(self.fn.Params) || self.fn.Params[r.Id] != r {
                return self.fail(bb, "parameter %s of another function used in %q", r.Ref(), ins)
            }
        }

        /* instruction results must be defined in this function */
        case IrDefinition: {
            if _, ok := self.defs[r]; !ok {
                return self.fail(bb, "operand %s of %q is not defined in the function", r.Ref(), ins)
            }
        }
    }
    return nil
}
