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

package bbdiv

import (
	"github.com/cloudwego/bbdiv/internal/passes"
	"github.com/cloudwego/bbdiv/ssa"
)

// dupCounter numbers the blocks created by every duplication in the process,
// so repeated transforms of the same function never reuse a block name.
var dupCounter int64

// RIVMap maps every basic block to its Reachable Integer Values.
type RIVMap = passes.RIVMap

// ValueSet is an insertion-ordered set of values.
type ValueSet = passes.ValueSet

// RunReachabilityAnalysis computes the Reachable Integer Values of every block
// of fn, over the dominator tree of fn.
func RunReachabilityAnalysis(fn *ssa.Func) *RIVMap {
	return passes.Reachability(fn, ssa.BuildDominatorTree(fn))
}

// RunReachabilityAnalysisWith is like RunReachabilityAnalysis, but uses dt as
// the dominator tree of fn.
func RunReachabilityAnalysisWith(fn *ssa.Func, dt ssa.DomTree) *RIVMap {
	return passes.Reachability(fn, dt)
}

// RunDuplicationTransform duplicates randomly selected blocks of fn, using riv
// to find the context values to branch on. riv must be computed on fn as it
// is now. Returns true if fn was modified.
func RunDuplicationTransform(fn *ssa.Func, riv *RIVMap, options ...Option) bool {
	o := makeOptions(options)
	p := passes.Duplicate{Seed: o.Seed, Counter: &dupCounter}
	return p.Apply(fn, riv)
}

// RunMergeTransform merges duplicated blocks of fn. Returns true if fn was
// modified.
func RunMergeTransform(fn *ssa.Func) bool {
	return passes.BlockMerge{}.Apply(fn)
}

// Diversify runs the whole pipeline over fn: block duplication guided by the
// Reachable Integer Values, then merging of duplicated blocks. When verifying
// is enabled, the first pass that leaves fn invalid is reported as a PassError.
func Diversify(fn *ssa.Func, options ...Option) (bool, error) {
	o := makeOptions(options)
	pl := passes.Pipeline(o, &dupCounter)
	ctx := passes.NewContext(fn)

	/* no checks by default */
	if !o.Verify {
		return passes.Execute(ctx, pl, nil)
	}

	/* verify after every pass */
	return passes.Execute(ctx, pl, func(p passes.PassDescriptor) error {
		if err := ssa.Verify(fn); err != nil {
			return PassError{Pass: p.Name, Err: err}
		}
		return nil
	})
}
