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
    `github.com/oleiade/lane`
)

// BasicBlockIter walks a dominator tree in pre-order, every block is produced
// after its immediate dominator, and siblings in the order of DomTree.Children.
type BasicBlockIter struct {
    t DomTree
    b *BasicBlock
    s *lane.Stack
}

func NewDomIter(dt DomTree) *BasicBlockIter {
    s := lane.NewStack()
    s.Push(dt.Root())
    return &BasicBlockIter { t: dt, s: s }
}

func (self *BasicBlockIter) Next() bool {
    if self.s.Empty() {
        self.b = nil
        return false
    }

    /* pop the current node */
    self.b = self.s.Pop().(*BasicBlock)
    ch := self.t.Children(self.b)

    /* push the children in reverse, so the first child comes out first */
    for i := len(ch) - 1; i >= 0; i-- {
        self.s.Push(ch[i])
    }
    return true
}

func (self *BasicBlockIter) Block() *BasicBlock {
    return self.b
}

func (self *BasicBlockIter) ForEach(action func(bb *BasicBlock)) {
    for self.Next() {
        action(self.b)
    }
}

// Reachable returns the set of blocks reachable from the entry of fn.
func Reachable(fn *Func) map[*BasicBlock]bool {
    q := lane.NewQueue()
    r := map[*BasicBlock]bool { fn.Entry: true }

    /* breadth-first search from the entry */
    for q.Enqueue(fn.Entry); !q.Empty(); {
        p := q.Dequeue().(*BasicBlock)
        for _, v := range p.Successors() {
            if !r[v] {
                r[v] = true
                q.Enqueue(v)
            }
        }
    }
    return r
}
