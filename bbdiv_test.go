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
	"errors"
	"testing"

	"github.com/cloudwego/bbdiv/internal/emu"
	"github.com/cloudwego/bbdiv/ssa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAbs builds abs(x i32) i32, with a global counter of calls.
func buildAbs() *ssa.Func {
	m := ssa.NewModule()
	calls := m.CreateGlobal("calls", ssa.Ptr, 0)
	fn := m.CreateFunc("abs", ssa.Int32)
	x := fn.AddParam("x", ssa.Int32)
	entry := fn.CreateBlock("entry")
	neg := fn.CreateBlock("neg")
	exit := fn.CreateBlock("exit")
	bd := ssa.NewBuilder(entry)
	n := bd.Load(ssa.Int32, calls)
	bd.Store(bd.Add(n, m.ConstInt(ssa.Int32, 1)), calls)
	bd.Branch(bd.Cmp(ssa.IrCmpLt, x, m.ConstInt(ssa.Int32, 0)), neg, exit)
	bd = ssa.NewBuilder(neg)
	y := bd.Sub(m.ConstInt(ssa.Int32, 0), x)
	bd.Jump(exit)
	bd = ssa.NewBuilder(exit)
	bd.Return(bd.Phi(ssa.Int32, ssa.IrPhiEdge{B: entry, V: x}, ssa.IrPhiEdge{B: neg, V: y}))
	return fn
}

func runAbs(t *testing.T, fn *ssa.Func) []int64 {
	var ret []int64
	for _, x := range []int64{0, 1, -1, 42, -42, 1 << 30, -1 << 31} {
		v, err := emu.NewEmulator().Run(fn, x)
		require.NoError(t, err, fn.String())
		ret = append(ret, v)
	}
	return ret
}

func TestDiversify(t *testing.T) {
	ref := buildAbs()
	fn := buildAbs()
	require.NoError(t, ssa.Verify(fn))
	changed, err := Diversify(fn, WithSeed(1), WithVerify(true))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, ssa.Verify(fn), fn.String())
	assert.Greater(t, len(fn.Blocks), len(ref.Blocks))
	assert.Equal(t, runAbs(t, ref), runAbs(t, fn))
}

func TestDiversify_Reproducible(t *testing.T) {
	fn1 := buildAbs()
	fn2 := buildAbs()
	_, err := Diversify(fn1, WithSeed(12345))
	require.NoError(t, err)
	_, err = Diversify(fn2, WithSeed(12345))
	require.NoError(t, err)
	assert.Equal(t, fn1.String(), fn2.String())
}

func TestDiversify_WithoutMerge(t *testing.T) {
	fn := buildAbs()
	nb := len(fn.Blocks)
	changed, err := Diversify(fn, WithSeed(1), WithoutMerge())
	require.NoError(t, err)
	require.True(t, changed)

	/* every duplicated block becomes four blocks, and none was merged back */
	assert.Zero(t, (len(fn.Blocks)-nb)%3)
	assert.True(t, RunMergeTransform(fn))
	require.NoError(t, ssa.Verify(fn), fn.String())
	assert.Equal(t, runAbs(t, buildAbs()), runAbs(t, fn))
}

func TestDiversify_NothingToDo(t *testing.T) {
	fn := ssa.NewModule().CreateFunc("nop", ssa.Void)
	ssa.NewBuilder(fn.CreateBlock("entry")).Return(nil)
	changed, err := Diversify(fn, WithVerify(true))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, fn.Blocks, 1)
}

func TestRunTransforms(t *testing.T) {
	fn := buildAbs()
	riv := RunReachabilityAnalysis(fn)
	assert.Equal(t, []ssa.Value{fn.Params[0]}, riv.Lookup(fn.Entry).Values())
	assert.Equal(t, riv.String(), RunReachabilityAnalysisWith(fn, ssa.BuildGonumDominatorTree(fn)).String())

	/* duplicate, then merge by hand */
	require.True(t, RunDuplicationTransform(fn, riv, WithSeed(7)))
	require.NoError(t, ssa.Verify(fn), fn.String())
	RunMergeTransform(fn)
	require.NoError(t, ssa.Verify(fn), fn.String())
	assert.Equal(t, runAbs(t, buildAbs()), runAbs(t, fn))
}

func TestPassError(t *testing.T) {
	var pe PassError
	err := error(PassError{Pass: "test", Err: ssa.Verify(brokenFunc())})
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "test", pe.Pass)

	/* the verifier error is still reachable */
	var ve ssa.VerifyError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "PassError(test): VerifyError(@broken, %entry): block is not terminated", err.Error())
}

func brokenFunc() *ssa.Func {
	fn := ssa.NewModule().CreateFunc("broken", ssa.Void)
	fn.CreateBlock("entry")
	return fn
}

func TestRunDuplicationTransform_UniqueNames(t *testing.T) {
	m := ssa.NewModule()
	g := m.CreateGlobal("g", ssa.Int32, 3)
	fn := m.CreateFunc("f", ssa.Int32)
	a := fn.AddParam("a", ssa.Int32)
	bd := ssa.NewBuilder(fn.CreateBlock("entry"))
	bd.Return(bd.Add(a, g))

	/* every call numbers its blocks after the previous ones */
	n := 0
	for seed := uint64(0); seed < 64 && n < 2; seed++ {
		if RunDuplicationTransform(fn, RunReachabilityAnalysis(fn), WithSeed(seed)) {
			n++
		}
		require.NoError(t, ssa.Verify(fn), fn.String())
	}
	require.Equal(t, 2, n)
	names := make(map[string]bool)
	for _, bb := range fn.Blocks {
		require.False(t, names[bb.Name], "block %s appears twice in\n%s", bb.Name, fn)
		names[bb.Name] = true
	}
}

func TestDiversify_UniqueNames(t *testing.T) {
	fn := buildAbs()
	for seed := uint64(1); seed <= 3; seed++ {
		_, err := Diversify(fn, WithSeed(seed), WithoutMerge(), WithVerify(true))
		require.NoError(t, err)
	}
	names := make(map[string]bool)
	for _, bb := range fn.Blocks {
		require.False(t, names[bb.Name], "block %s appears twice in\n%s", bb.Name, fn)
		names[bb.Name] = true
	}
	assert.Equal(t, runAbs(t, buildAbs()), runAbs(t, fn))
}
