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

package passes

import (
    `fmt`

    `github.com/cloudwego/bbdiv/ssa`
)

// BlockMerge merges duplicated blocks: two blocks that jump unconditionally
// to the same successor and contain the same instructions over the same
// operands compute the same thing, so every edge into one of them can be
// redirected into the other, and the former can be removed.
//
// Removals are deferred until every block has been examined.
type BlockMerge struct{}

// Apply merges duplicated blocks of fn, and reports whether any block was
// removed.
func (self BlockMerge) Apply(fn *ssa.Func) bool {
    var dl []*ssa.BasicBlock
    var rm = make(map[*ssa.BasicBlock]bool)

    /* check every block, the block list is not modified during the scan */
    for _, bb := range fn.Blocks {
        if mergeDuplicatedBlock(fn, bb, rm) {
            dl = append(dl, bb)
        }
    }

    /* remove all the merged blocks */
    for _, bb := range dl {
        fn.RemoveBlock(bb)
    }

    /* update the statistics */
    addStat(&MergedBlocks, len(dl))
    return len(dl) != 0
}

// simpleEdges reports whether every predecessor of bb reaches it through
// an ordinary branch or switch.
func simpleEdges(fn *ssa.Func, bb *ssa.BasicBlock) bool {
    pred := fn.Predecessors(bb)
    if len(pred) == 0 {
        return false
    }
    for _, p := range pred {
        switch p.Term.(type) {
            case *ssa.IrJump   : break
            case *ssa.IrBranch : break
            case *ssa.IrSwitch : break
            default            : return false
        }
    }
    return true
}

// mergeCandidate checks the conditions shared by the block to erase and the
// block to retain, and returns the successor both jump to.
func mergeCandidate(fn *ssa.Func, bb *ssa.BasicBlock) (*ssa.BasicBlock, bool) {
    if bb == fn.Entry || len(bb.Phi) != 0 {
        return nil, false
    }

    /* must end with an unconditional branch to some other block */
    tr, ok := bb.Term.(*ssa.IrJump)
    if !ok || tr.To == bb {
        return nil, false
    }

    /* keep things simple, only consider ordinary CFG edges */
    if !simpleEdges(fn, bb) {
        return nil, false
    }
    return tr.To, true
}

func definedIn(v ssa.Value, bb *ssa.BasicBlock) bool {
    d, ok := v.(ssa.IrDefinition)
    return ok && d.Block() == bb
}

func mergeDuplicatedBlock(fn *ssa.Func, bb1 *ssa.BasicBlock, rm map[*ssa.BasicBlock]bool) bool {
    var in1 ssa.Value
    var phi *ssa.IrPhi

    /* check if the block can be erased */
    succ, ok := mergeCandidate(fn, bb1)
    if !ok {
        return false
    }

    /* multiple Phi nodes in the successor is too complex, give up */
    switch len(succ.Phi) {
        case 0  : break
        case 1  : phi, in1 = succ.Phi[0], succ.Phi[0].Incoming(bb1)
        default : return false
    }

    /* find another predecessor of the successor that is a duplicate */
    n1 := bb1.NumNonDebug()
    for _, bb2 := range fn.Predecessors(succ) {
        if bb2 == bb1 || rm[bb2] {
            continue
        }

        /* must share the same successor, and have the same size */
        if s2, ok := mergeCandidate(fn, bb2); !ok || s2 != succ || bb2.NumNonDebug() != n1 {
            continue
        }

        /* the values flowing into the Phi node must be the same, or both be
         * defined in their own block and checked below */
        if phi != nil {
            in2 := phi.Incoming(bb2)
            if in1 != in2 && !(definedIn(in1, bb1) && definedIn(in2, bb2)) {
                continue
            }
        }

        /* compare the block bodies */
        if !lockstepEqual(fn, bb1, bb2, phi) {
            continue
        }

        /* redirect every edge into bb1 to bb2 */
        nb := updateBranchTargets(fn, bb1, bb2)
        if nb == 0 {
            panic(fmt.Sprintf("no branch targets updated when merging %s into %s", bb1.Ref(), bb2.Ref()))
        }

        /* schedule for removal */
        rm[bb1] = true
        addStat(&UpdatedBranchTargets, nb)
        return true
    }
    return false
}

func bodyOf(bb *ssa.BasicBlock) []ssa.IrNode {
    ret := make([]ssa.IrNode, 0, len(bb.Ins))
    for _, v := range bb.Ins {
        if _, ok := v.(*ssa.IrDebug); !ok {
            ret = append(ret, v)
        }
    }
    return ret
}

// lockstepEqual walks the bodies of both blocks backwards in lockstep, and
// reports whether every pair of instructions can be merged and both walks
// end at the same time.
func lockstepEqual(fn *ssa.Func, bb1 *ssa.BasicBlock, bb2 *ssa.BasicBlock, phi *ssa.IrPhi) bool {
    b1 := bodyOf(bb1)
    b2 := bodyOf(bb2)
    i, j := len(b1) - 1, len(b2) - 1

    /* compare from the last instruction */
    for i >= 0 && j >= 0 {
        if !canMergeInstructions(fn, b1[i], b2[j], phi) {
            return false
        }
        i--
        j--
    }

    /* one of the blocks is longer */
    return i < 0 && j < 0
}

func canMergeInstructions(fn *ssa.Func, ins1 ssa.IrNode, ins2 ssa.IrNode, phi *ssa.IrPhi) bool {
    if !ssa.IsSameOperation(ins1, ins2) {
        return false
    }

    /* each instruction must have either no uses, or exactly one removable use */
    u1, u2 := usersOf(fn, ins1), usersOf(fn, ins2)
    if len(u1) != len(u2) || len(u1) > 1 {
        return false
    }

    /* the single use must go away together with the block */
    if len(u1) == 1 && (!canRemoveInst(ins1, u1[0], phi) || !canRemoveInst(ins2, u2[0], phi)) {
        return false
    }

    /* the operands must be exactly the same values */
    o1, o2 := operandsOf(ins1), operandsOf(ins2)
    if len(o1) != len(o2) {
        return false
    }
    for k := range o1 {
        if *o1[k] != *o2[k] {
            return false
        }
    }
    return true
}

// canRemoveInst reports whether the only use of ins is either inside its own
// block, or the incoming value of its block in the Phi node of the successor.
func canRemoveInst(ins ssa.IrNode, use ssa.IrNode, phi *ssa.IrPhi) bool {
    if use.Block() == ins.Block() {
        return true
    }
    if p, ok := use.(*ssa.IrPhi); ok && p == phi {
        return p.Incoming(ins.Block()) == ins.(ssa.Value)
    }
    return false
}

func usersOf(fn *ssa.Func, ins ssa.IrNode) []ssa.IrNode {
    if d, ok := ins.(ssa.IrDefinition); ok {
        return fn.Users(d)
    } else {
        return nil
    }
}

func operandsOf(ins ssa.IrNode) []*ssa.Value {
    if u, ok := ins.(ssa.IrUsages); ok {
        return u.Usages()
    } else {
        return nil
    }
}

// updateBranchTargets retargets every edge into bb to go into to instead,
// and returns the number of updated edges.
func updateBranchTargets(fn *ssa.Func, bb *ssa.BasicBlock, to *ssa.BasicBlock) int {
    nb := 0
    for _, p := range fn.Predecessors(bb) {
        for it := p.Term.Successors(); it.Next(); {
            if it.Block() == bb {
                it.UpdateBlock(to)
                nb++
            }
        }
    }
    return nb
}
