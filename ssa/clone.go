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

// CloneInstr returns a detached copy of ins, with every operand found in
// remap replaced by its mapping. The copy defines a fresh value, if any.
// Terminators cannot be cloned.
func (self *Func) CloneInstr(ins IrNode, remap map[Value]Value) IrNode {
    var ret IrNode

    /* copy the instruction */
    switch v := ins.(type) {
        case *IrPhi: {
            p := &IrPhi { _IrDef: self.cloneDef(v._IrDef) }
            p.In = append(p.In, v.In...)
            ret = p
        }

        /* ordinary instructions */
        case *IrBinaryExpr : ret = &IrBinaryExpr { _IrDef: self.cloneDef(v._IrDef), X: v.X, Y: v.Y, Op: v.Op }
        case *IrCompare    : ret = &IrCompare { _IrDef: self.cloneDef(v._IrDef), X: v.X, Y: v.Y, Op: v.Op }
        case *IrLoad       : ret = &IrLoad { _IrDef: self.cloneDef(v._IrDef), Mem: v.Mem }
        case *IrStore      : ret = &IrStore { V: v.V, Mem: v.Mem }
        case *IrDebug      : ret = &IrDebug { Note: v.Note }
        default            : panic(fmt.Sprintf("cannot clone instruction: %s", ins))
    }

    /* remap the operands */
    if u, ok := ret.(IrUsages); ok {
        for _, p := range u.Usages() {
            if r, ok := remap[*p]; ok {
                *p = r
            }
        }
    }
    return ret
}

func (self *Func) cloneDef(d _IrDef) _IrDef {
    return _IrDef { Id: self.newValueId(), Ty: d.Ty }
}

// IsSameOperation reports whether a and b perform the exact same operation,
// including result type and opcode-specific parameters. Operands are not
// compared.
func IsSameOperation(a IrNode, b IrNode) bool {
    switch x := a.(type) {
        case *IrPhi: {
            y, ok := b.(*IrPhi)
            if !ok || x.Ty != y.Ty || len(x.In) != len(y.In) {
                return false
            }
            for i := range x.In {
                if x.In[i].B != y.In[i].B {
                    return false
                }
            }
            return true
        }

        /* ordinary instructions */
        case *IrBinaryExpr : y, ok := b.(*IrBinaryExpr) ; return ok && x.Ty == y.Ty && x.Op == y.Op
        case *IrCompare    : y, ok := b.(*IrCompare)    ; return ok && x.Op == y.Op && x.X.Type() == y.X.Type()
        case *IrLoad       : y, ok := b.(*IrLoad)       ; return ok && x.Ty == y.Ty
        case *IrStore      : y, ok := b.(*IrStore)      ; return ok && x.V.Type() == y.V.Type()
        case *IrDebug      : y, ok := b.(*IrDebug)      ; return ok && x.Note == y.Note
        case *IrJump       : _, ok := b.(*IrJump)       ; return ok
        case *IrBranch     : _, ok := b.(*IrBranch)     ; return ok
        case *IrReturn     : _, ok := b.(*IrReturn)     ; return ok
        default            : return false

        /* switches must have the same case values */
        case *IrSwitch: {
            y, ok := b.(*IrSwitch)
            if !ok || len(x.Br) != len(y.Br) {
                return false
            }
            for i := range x.Br {
                if x.Br[i].V != y.Br[i].V {
                    return false
                }
            }
            return true
        }
    }
}
