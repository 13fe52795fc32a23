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
    `sort`

    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

type _BlockNode struct {
    bb *BasicBlock
}

func (self _BlockNode) ID() int64 {
    return int64(self.bb.Id)
}

// BuildGonumDominatorTree computes the same tree as BuildDominatorTree, but
// with the dominator algorithm of gonum over a simple directed view of the
// CFG. Self loops never affect dominance, so they are left out of the view.
func BuildGonumDominatorTree(fn *Func) *DominatorTree {
    g := simple.NewDirectedGraph()
    ids := make(map[int64]*BasicBlock, len(fn.Blocks))

    /* add every block as a node */
    for _, bb := range fn.Blocks {
        ids[int64(bb.Id)] = bb
        g.AddNode(_BlockNode { bb })
    }

    /* add every edge */
    for _, bb := range fn.Blocks {
        for _, p := range bb.Successors() {
            if p != bb {
                g.SetEdge(g.NewEdge(_BlockNode { bb }, _BlockNode { p }))
            }
        }
    }

    /* compute the dominators */
    dt := flow.Dominators(_BlockNode { fn.Entry }, g)
    ret := &DominatorTree {
        root        : fn.Entry,
        DominatedBy : make(map[*BasicBlock]*BasicBlock),
        DominatorOf : make(map[*BasicBlock][]*BasicBlock),
    }

    /* map the dominator relations */
    for _, bb := range fn.Blocks {
        if bb != fn.Entry {
            if d := dt.DominatorOf(int64(bb.Id)); d != nil {
                p := ids[d.ID()]
                ret.DominatedBy[bb] = p
                ret.DominatorOf[p] = append(ret.DominatorOf[p], bb)
            }
        }
    }

    /* keep the children in a stable order */
    for _, v := range ret.DominatorOf {
        sort.Slice(v, func(i int, j int) bool {
            return v[i].Id < v[j].Id
        })
    }
    return ret
}
