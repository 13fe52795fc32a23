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
    `github.com/cloudwego/bbdiv/internal/opts`
    `github.com/cloudwego/bbdiv/ssa`
)

// Context carries a function through the pipeline, along with the analysis
// results that are still valid for it.
type Context struct {
    Func *ssa.Func
    riv  *RIVMap
}

func NewContext(fn *ssa.Func) *Context {
    return &Context { Func: fn }
}

// RIV returns the Reachable Integer Values of the function, recomputing them
// if the function has changed since the last call.
func (self *Context) RIV() *RIVMap {
    if self.riv == nil {
        self.riv = Reachability(self.Func, ssa.BuildDominatorTree(self.Func))
    }
    return self.riv
}

// Invalidate drops all cached analysis results.
func (self *Context) Invalidate() {
    self.riv = nil
}

type Pass interface {
    Apply(*Context) bool
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

type _RIVPass     struct{}
type _DupPass     struct { Duplicate }
type _MergePass   struct { BlockMerge }

func (_RIVPass) Apply(ctx *Context) bool {
    ctx.RIV()
    return false
}

func (self *_DupPass) Apply(ctx *Context) bool {
    return self.Duplicate.Apply(ctx.Func, ctx.RIV())
}

func (self *_MergePass) Apply(ctx *Context) bool {
    return self.BlockMerge.Apply(ctx.Func)
}

// Pipeline returns the passes to run for the given options, in order. Blocks
// created by the duplication pass are numbered from counter, or from zero
// when counter is nil.
func Pipeline(o opts.Options, counter *int64) []PassDescriptor {
    ret := []PassDescriptor {
        { Name: "Reachable Integer Values" , Pass: new(_RIVPass) },
        { Name: "Basic Block Duplication"  , Pass: &_DupPass { Duplicate { Seed: o.Seed, Counter: counter } } },
    }

    /* merging is optional */
    if !o.NoMerge {
        ret = append(ret, PassDescriptor { Name: "Duplicated Block Merging", Pass: new(_MergePass) })
    }
    return ret
}

// Execute runs every pass over the context, and calls check after each one
// that changed the function. Execution stops at the first error.
func Execute(ctx *Context, pl []PassDescriptor, check func(PassDescriptor) error) (bool, error) {
    changed := false
    for _, p := range pl {
        if !p.Pass.Apply(ctx) {
            continue
        }

        /* the function has changed */
        changed = true
        ctx.Invalidate()

        /* check the result if needed */
        if check != nil {
            if err := check(p); err != nil {
                return changed, err
            }
        }
    }
    return changed, nil
}
