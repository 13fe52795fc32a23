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

/** This is an implementation of the Lengauer-Tarjan algorithm described in
 *  https://doi.org/10.1145%2F357062.357071
 */

package ssa

import (
    `sort`
)

// DomTree is the view of a dominator tree consumed by the analyses: the
// root, and the children of each node.
type DomTree interface {
    Root() *BasicBlock
    Children(bb *BasicBlock) []*BasicBlock
}

type _LtNode struct {
    semi     int
    node     *BasicBlock
    dom      *_LtNode
    label    *_LtNode
    parent   *_LtNode
    ancestor *_LtNode
    pred     []*_LtNode
    bucket   []*_LtNode
}

type _LengauerTarjan struct {
    nodes  []*_LtNode
    vertex map[*BasicBlock]int
}

func newLengauerTarjan() *_LengauerTarjan {
    return &_LengauerTarjan {
        vertex: make(map[*BasicBlock]int),
    }
}

func (self *_LengauerTarjan) dfs(bb *BasicBlock) {
    i := len(self.nodes)
    self.vertex[bb] = i

    /* create a new node */
    p := &_LtNode {
        semi : i,
        node : bb,
    }

    /* add to node list */
    p.label = p
    self.nodes = append(self.nodes, p)

    /* traverse the successors */
    for it := bb.Term.Successors(); it.Next(); {
        w := it.Block()
        idx, ok := self.vertex[w]

        /* not visited yet */
        if !ok {
            self.dfs(w)
            idx = self.vertex[w]
            self.nodes[idx].parent = p
        }

        /* add predecessors */
        q := self.nodes[idx]
        q.pred = append(q.pred, p)
    }
}

func (self *_LengauerTarjan) eval(p *_LtNode) *_LtNode {
    if p.ancestor == nil {
        return p
    } else {
        self.compress(p)
        return p.label
    }
}

func (self *_LengauerTarjan) link(p *_LtNode, q *_LtNode) {
    q.ancestor = p
}

func (self *_LengauerTarjan) compress(p *_LtNode) {
    if p.ancestor.ancestor != nil {
        self.compress(p.ancestor)
        if p.label.semi > p.ancestor.label.semi { p.label = p.ancestor.label }
        p.ancestor = p.ancestor.ancestor
    }
}

// DominatorTree maps every block reachable from the root to its immediate
// dominator, and every block to the blocks it immediately dominates.
type DominatorTree struct {
    root        *BasicBlock
    DominatedBy map[*BasicBlock]*BasicBlock
    DominatorOf map[*BasicBlock][]*BasicBlock
}

func (self *DominatorTree) Root() *BasicBlock {
    return self.root
}

func (self *DominatorTree) Children(bb *BasicBlock) []*BasicBlock {
    return self.DominatorOf[bb]
}

// Dominates reports whether a dominates b. Every block dominates itself,
// blocks unreachable from the root are dominated by nothing.
func (self *DominatorTree) Dominates(a *BasicBlock, b *BasicBlock) bool {
    if b != self.root && self.DominatedBy[b] == nil {
        return false
    }
    for p := b; p != nil; p = self.DominatedBy[p] {
        if p == a {
            return true
        }
    }
    return false
}

// BuildDominatorTree computes the dominator tree of fn rooted at its entry
// block. Children of each node are ordered by block ID.
func BuildDominatorTree(fn *Func) *DominatorTree {
    domby := make(map[*BasicBlock]*BasicBlock)
    domof := make(map[*BasicBlock][]*BasicBlock)

    /* Step 1: Carry out a depth-first search of the problem graph. Number the vertices
     * from 1 to n as they are reached during the search. Initialize the variables used
     * in succeeding steps. */
    lt := newLengauerTarjan()
    lt.dfs(fn.Entry)

    /* perform Step 2 and Step 3 simultaneously */
    for i := len(lt.nodes) - 1; i > 0; i-- {
        p := lt.nodes[i]
        q := (*_LtNode)(nil)

        /* Step 2: Compute the semidominators of all vertices by applying Theorem 4.
         * Carry out the computation vertex by vertex in decreasing order by number. */
        for _, v := range p.pred {
            q = lt.eval(v)
            p.semi = minint(p.semi, q.semi)
        }

        /* link the ancestor */
        lt.link(p.parent, p)
        lt.nodes[p.semi].bucket = append(lt.nodes[p.semi].bucket, p)

        /* Step 3: Implicitly define the immediate dominator of each vertex by applying Corollary 1 */
        for _, v := range p.parent.bucket {
            if q = lt.eval(v); q.semi < v.semi {
                v.dom = q
            } else {
                v.dom = p.parent
            }
        }

        /* clear the bucket */
        p.parent.bucket = nil
    }

    /* Step 4: Explicitly define the immediate dominator of each vertex, carrying out the
     * computation vertex by vertex in increasing order by number. */
    for _, p := range lt.nodes[1:] {
        if p.dom != lt.nodes[p.semi] {
            p.dom = p.dom.dom
        }
    }

    /* map the dominator relations */
    for _, p := range lt.nodes[1:] {
        domby[p.node] = p.dom.node
        domof[p.dom.node] = append(domof[p.dom.node], p.node)
    }

    /* keep the children in a stable order */
    for _, v := range domof {
        sort.Slice(v, func(i int, j int) bool {
            return v[i].Id < v[j].Id
        })
    }

    /* construct the dominator tree */
    return &DominatorTree {
        root        : fn.Entry,
        DominatorOf : domof,
        DominatedBy : domby,
    }
}

func minint(a int, b int) int {
    if a < b {
        return a
    } else {
        return b
    }
}
