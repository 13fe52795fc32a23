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
    `strings`

    `github.com/cloudwego/bbdiv/ssa`
)

// ValueSet is a set of values that remembers insertion order, so that picking
// the i-th element is reproducible. A nil *ValueSet is an empty set.
type ValueSet struct {
    vals []ssa.Value
    keys map[ssa.Value]struct{}
}

func newValueSet() *ValueSet {
    return &ValueSet { keys: make(map[ssa.Value]struct{}) }
}

func (self *ValueSet) Add(v ssa.Value) bool {
    if _, ok := self.keys[v]; ok {
        return false
    } else {
        self.keys[v] = struct{}{}
        self.vals = append(self.vals, v)
        return true
    }
}

func (self *ValueSet) Has(v ssa.Value) bool {
    if self == nil {
        return false
    }
    _, ok := self.keys[v]
    return ok
}

func (self *ValueSet) Len() int {
    if self == nil {
        return 0
    } else {
        return len(self.vals)
    }
}

func (self *ValueSet) At(i int) ssa.Value {
    return self.vals[i]
}

// Values returns a copy of the elements in insertion order.
func (self *ValueSet) Values() []ssa.Value {
    if self == nil {
        return nil
    } else {
        return append([]ssa.Value(nil), self.vals...)
    }
}

// IsSupersetOf reports whether every element of other is also in self.
func (self *ValueSet) IsSupersetOf(other *ValueSet) bool {
    for _, v := range other.Values() {
        if !self.Has(v) {
            return false
        }
    }
    return true
}

func (self *ValueSet) union(other *ValueSet) *ValueSet {
    ret := newValueSet()
    for _, v := range self.Values() { ret.Add(v) }
    for _, v := range other.Values() { ret.Add(v) }
    return ret
}

func (self *ValueSet) String() string {
    buf := make([]string, 0, self.Len())
    for _, v := range self.Values() {
        buf = append(buf, v.Ref())
    }
    return "{" + strings.Join(buf, ", ") + "}"
}

// RIVMap holds the Reachable Integer Values of every block of a function: the
// integer values that are guaranteed to be computed when control reaches the
// entry of the block. The map is stale as soon as the function is modified.
type RIVMap struct {
    fn  *ssa.Func
    riv map[*ssa.BasicBlock]*ValueSet
    def map[*ssa.BasicBlock]*ValueSet
}

// Lookup returns the RIV set of bb. Blocks unreachable from the entry have
// an empty set.
func (self *RIVMap) Lookup(bb *ssa.BasicBlock) *ValueSet {
    return self.riv[bb]
}

// Defined returns the integer values defined in bb itself.
func (self *RIVMap) Defined(bb *ssa.BasicBlock) *ValueSet {
    return self.def[bb]
}

func (self *RIVMap) String() string {
    buf := []string {
        fmt.Sprintf("RIV for @%s:", self.fn.Name),
    }
    for _, bb := range self.fn.Blocks {
        buf = append(buf, fmt.Sprintf("  %s: %s", bb.Ref(), self.riv[bb]))
    }
    return strings.Join(buf, "\n")
}

func definedValues(bb *ssa.BasicBlock) *ValueSet {
    ret := newValueSet()
    for _, v := range bb.Phi {
        if v.Type().IsInt() {
            ret.Add(v)
        }
    }
    for _, v := range bb.Ins {
        if d, ok := v.(ssa.IrDefinition); ok && d.Type().IsInt() {
            ret.Add(d)
        }
    }
    return ret
}

// Reachability computes the RIV sets of fn. dt must be the dominator tree of
// fn rooted at its entry block.
func Reachability(fn *ssa.Func, dt ssa.DomTree) *RIVMap {
    ret := &RIVMap {
        fn  : fn,
        riv : make(map[*ssa.BasicBlock]*ValueSet, len(fn.Blocks)),
        def : make(map[*ssa.BasicBlock]*ValueSet, len(fn.Blocks)),
    }

    /* Step 1: find the integer values defined in every block */
    for _, bb := range fn.Blocks {
        ret.def[bb] = definedValues(bb)
    }

    /* Step 2: integer globals and parameters are reachable from the entry */
    root := newValueSet()
    ret.riv[dt.Root()] = root

    /* add the integer globals */
    if fn.Module != nil {
        for _, g := range fn.Module.Globals {
            if g.Ty.IsInt() {
                root.Add(g)
            }
        }
    }

    /* add the integer parameters */
    for _, p := range fn.Params {
        if p.Ty.IsInt() {
            root.Add(p)
        }
    }

    /* Step 3: walk the dominator tree in pre-order, every block is finalized
     * before its children, which inherit its RIV plus its own definitions */
    ssa.NewDomIter(dt).ForEach(func(bb *ssa.BasicBlock) {
        for _, p := range dt.Children(bb) {
            ret.riv[p] = ret.riv[bb].union(ret.def[bb])
        }
    })
    return ret
}
