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
    `sync/atomic`

    `github.com/cloudwego/bbdiv/ssa`
    `golang.org/x/exp/rand`
)

type _DupTarget struct {
    bb *ssa.BasicBlock
    cv ssa.Value
}

// Duplicate rewrites randomly chosen blocks into a diamond that branches on
// whether a reachable integer value is zero, with a copy of the block body on
// each side and join nodes merging the two copies:
//
//     if-then-else-N:  %c = icmp eq %v, 0 ; br %c, clone-1-N, clone-2-N
//     clone-1-N:       <body> ; br tail-N
//     clone-2-N:       <body> ; br tail-N
//     tail-N:          <phi for each value of body> ; <original terminator>
//
// Both sides compute the same values, so the rewrite does not change what
// the function computes. Selection is driven by a PRNG seeded from Seed on
// every call, so a fixed seed always selects the same blocks.
//
// N comes from Counter, or from a counter private to the instance when
// Counter is nil. Either way it keeps increasing across calls.
type Duplicate struct {
    Seed    uint64
    Counter *int64
    count   int64
}

// Apply duplicates the selected blocks of fn, and reports whether any block
// was duplicated. riv must be computed on fn as it is now, and is stale
// after Apply returns true.
func (self *Duplicate) Apply(fn *ssa.Func, riv *RIVMap) bool {
    rm := make(map[ssa.Value]ssa.Value)
    rt := self.findBlocks(fn, riv, rand.New(rand.NewSource(self.Seed)))

    /* clone every selected block */
    for _, t := range rt {
        self.cloneBlock(fn, t, rm)
    }

    /* update the statistics */
    addStat(&DuplicatedBlocks, len(rt))
    return len(rt) != 0
}

func (self *Duplicate) nextId() int64 {
    if self.Counter == nil {
        self.Counter = &self.count
    }
    return atomic.AddInt64(self.Counter, 1) - 1
}

func (self *Duplicate) findBlocks(fn *ssa.Func, riv *RIVMap, rng *rand.Rand) []_DupTarget {
    var ret []_DupTarget
    for _, bb := range fn.Blocks {
        rv := riv.Lookup(bb)
        nb := rv.Len()

        /* landing pads and blocks without context values are never duplicated */
        if bb.Landing || nb == 0 {
            continue
        }

        /* global constants would make a branch that is always or never taken */
        cv := rv.At(rng.Intn(nb))
        if _, ok := cv.(*ssa.Global); ok {
            continue
        }

        /* mark as a duplication target */
        ret = append(ret, _DupTarget {
            bb: bb,
            cv: cv,
        })
    }
    return ret
}

func (self *Duplicate) cloneBlock(fn *ssa.Func, t _DupTarget, rm map[ssa.Value]ssa.Value) {
    id := self.nextId()
    cv := t.cv

    /* an earlier duplication may have replaced the context value with a join node */
    for v, ok := rm[cv]; ok; v, ok = rm[cv] {
        cv = v
    }

    /* split the block right after the Phi nodes into a diamond */
    cond := ssa.NewBuilderAt(t.bb, 0).IsNull(cv)
    then, els, tail := fn.SplitBlockAndInsertIfThenElse(t.bb, 1, cond)

    /* name the blocks after the duplication counter */
    t.bb.Name = fmt.Sprintf("if-then-else-%d", id)
    then.Name = fmt.Sprintf("clone-1-%d", id)
    els.Name = fmt.Sprintf("clone-2-%d", id)
    tail.Name = fmt.Sprintf("tail-%d", id)

    /* clone every instruction into both branches */
    ins := append([]ssa.IrNode(nil), tail.Ins...)
    join := make([]ssa.IrDefinition, 0, len(ins))
    phis := make([]*ssa.IrPhi, 0, len(ins))
    thenmap := make(map[ssa.Value]ssa.Value, len(ins))
    elsemap := make(map[ssa.Value]ssa.Value, len(ins))

    /* values defined in the tail are remapped to the copies in each branch */
    for _, v := range ins {
        p := fn.CloneInstr(v, thenmap)
        q := fn.CloneInstr(v, elsemap)
        ssa.NewBuilder(then).Insert(p)
        ssa.NewBuilder(els).Insert(q)

        /* instructions without results only need the clones */
        d, ok := v.(ssa.IrDefinition)
        if !ok {
            continue
        }

        /* join the two copies in the tail */
        thenmap[d] = p.(ssa.Value)
        elsemap[d] = q.(ssa.Value)
        join = append(join, d)
        phis = append(phis, ssa.NewBuilder(tail).Phi(d.Type(),
            ssa.IrPhiEdge { B: then, V: thenmap[d] },
            ssa.IrPhiEdge { B: els, V: elsemap[d] },
        ))
    }

    /* remove the originals from the tail */
    for _, v := range ins {
        tail.RemoveInstr(v)
    }

    /* later uses, including the tail terminator, now see the join nodes */
    for i, d := range join {
        fn.ReplaceAllUsesWith(d, phis[i])
        rm[d] = phis[i]
    }
}
