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

    `gonum.org/v1/gonum/graph/encoding`
    `gonum.org/v1/gonum/graph/encoding/dot`
    `gonum.org/v1/gonum/graph/multi`
)

type _DotBlock struct {
    bb *BasicBlock
}

func (self _DotBlock) ID() int64 {
    return int64(self.bb.Id)
}

func (self _DotBlock) DOTID() string {
    return self.bb.Ref()[1:]
}

func (self _DotBlock) Attributes() []encoding.Attribute {
    buf := []string { self.bb.Ref()[1:] + ":" }
    for _, v := range self.bb.Phi { buf = append(buf, v.String()) }
    for _, v := range self.bb.Ins { buf = append(buf, v.String()) }

    /* add the terminator if any */
    if self.bb.Term != nil {
        buf = append(buf, self.bb.Term.String())
    }

    /* one line per instruction, quoted by the encoder */
    return []encoding.Attribute {
        { Key: "shape", Value: "box" },
        { Key: "label", Value: strings.Join(buf, "\n") },
    }
}

type _DotEdge struct {
    multi.Line
    label string
}

func (self _DotEdge) Attributes() []encoding.Attribute {
    return []encoding.Attribute {{ Key: "label", Value: self.label }}
}

// DOT renders the CFG of the function in Graphviz format. Every CFG edge is
// kept, including self loops and parallel edges of a conditional branch.
func (self *Func) DOT() ([]byte, error) {
    id := int64(0)
    g := multi.NewDirectedGraph()

    /* add every block */
    for _, bb := range self.Blocks {
        g.AddNode(_DotBlock { bb })
    }

    /* add every edge with its label */
    for _, bb := range self.Blocks {
        if bb.Term == nil {
            continue
        }

        /* label each successor edge */
        for it := bb.Term.Successors(); it.Next(); {
            var lb string
            v, ok := it.Value()

            /* determine the edge label */
            switch bb.Term.(type) {
                case *IrBranch : lb = fmt.Sprint(v != 0)
                case *IrJump   : lb = "goto"
                default        : if ok { lb = fmt.Sprint(v) } else { lb = "otherwise" }
            }

            /* add to the graph */
            id++
            g.SetLine(_DotEdge {
                label : lb,
                Line  : multi.Line { F: _DotBlock { bb }, T: _DotBlock { it.Block() }, UID: id },
            })
        }
    }

    /* marshal as a DOT multigraph */
    return dot.MarshalMulti(g, self.Name, "", "    ")
}
