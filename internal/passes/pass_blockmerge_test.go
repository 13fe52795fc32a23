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
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/bbdiv/internal/emu`
    `github.com/cloudwego/bbdiv/ssa`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

type _Siblings struct {
    fn    *ssa.Func
    entry *ssa.BasicBlock
    b1    *ssa.BasicBlock
    b2    *ssa.BasicBlock
    succ  *ssa.BasicBlock
}

// buildSiblings builds:
//
//     entry: br %c, b1, b2
//     b1:    %x = add %a, %b ; br succ
//     b2:    %y = add %a, %b ; br succ
//     succ:  ret %a
func buildSiblings() *_Siblings {
    m := ssa.NewModule()
    fn := m.CreateFunc("siblings", ssa.Int32)
    a := fn.AddParam("a", ssa.Int32)
    b := fn.AddParam("b", ssa.Int32)
    ret := &_Siblings {
        fn    : fn,
        entry : fn.CreateBlock("entry"),
        b1    : fn.CreateBlock("b1"),
        b2    : fn.CreateBlock("b2"),
        succ  : fn.CreateBlock("succ"),
    }
    bd := ssa.NewBuilder(ret.entry)
    bd.Branch(bd.Cmp(ssa.IrCmpLt, a, b), ret.b1, ret.b2)
    bd = ssa.NewBuilder(ret.b1)
    bd.Name("x").Add(a, b)
    bd.Jump(ret.succ)
    bd = ssa.NewBuilder(ret.b2)
    bd.Name("y").Add(a, b)
    bd.Jump(ret.succ)
    ssa.NewBuilder(ret.succ).Return(a)
    return ret
}

func TestBlockMerge_Siblings(t *testing.T) {
    s := buildSiblings()
    require.NoError(t, ssa.Verify(s.fn))
    mb := LoadStat(&MergedBlocks)
    ub := LoadStat(&UpdatedBranchTargets)
    require.True(t, BlockMerge{}.Apply(s.fn))
    require.NoError(t, ssa.Verify(s.fn), s.fn.String())
    println(s.fn.String())

    /* b1 is gone, and its only predecessor edge now goes to b2 */
    br := s.entry.Term.(*ssa.IrBranch)
    assert.Equal(t, []*ssa.BasicBlock { s.entry, s.b2, s.succ }, s.fn.Blocks)
    assert.Equal(t, s.b2, br.Then)
    assert.Equal(t, s.b2, br.Else)
    assert.Equal(t, []*ssa.BasicBlock { s.entry }, s.fn.Predecessors(s.b2))
    assert.Equal(t, s.succ, s.b2.Term.(*ssa.IrJump).To)
    assert.Nil(t, s.b1.Func())
    assert.Equal(t, mb + 1, LoadStat(&MergedBlocks))
    assert.Equal(t, ub + 1, LoadStat(&UpdatedBranchTargets))

    /* nothing left to merge */
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_DifferentOperands(t *testing.T) {
    s := buildSiblings()
    s.b2.Ins[0].(*ssa.IrBinaryExpr).Y = s.fn.Params[0]
    require.False(t, BlockMerge{}.Apply(s.fn))
    assert.Len(t, s.fn.Blocks, 4)
}

func TestBlockMerge_DifferentOperations(t *testing.T) {
    s := buildSiblings()
    s.b2.Ins[0].(*ssa.IrBinaryExpr).Op = ssa.IrOpSub
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_DifferentLength(t *testing.T) {
    s := buildSiblings()
    ssa.NewBuilderAt(s.b2, 0).Add(s.fn.Params[0], s.fn.Params[0])
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_IgnoresDebug(t *testing.T) {
    s := buildSiblings()
    ssa.NewBuilderAt(s.b2, 0).Debug("one")
    ssa.NewBuilderAt(s.b1, 1).Debug("two")
    require.True(t, BlockMerge{}.Apply(s.fn))
    require.NoError(t, ssa.Verify(s.fn), s.fn.String())
}

func TestBlockMerge_UsedOutside(t *testing.T) {
    s := buildSiblings()
    s.succ.Term.(*ssa.IrReturn).V = s.b1.Ins[0].(ssa.Value)
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_UsedLocally(t *testing.T) {
    s := buildSiblings()
    x := s.b1.Ins[0].(*ssa.IrBinaryExpr)
    y := s.b2.Ins[0].(*ssa.IrBinaryExpr)
    ssa.NewBuilderAt(s.b1, 1).Store(x, s.fn.Module.CreateGlobal("m1", ssa.Ptr, 0))
    ssa.NewBuilderAt(s.b2, 1).Store(y, s.fn.Module.CreateGlobal("m2", ssa.Ptr, 0))

    /* the stores use different values */
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_EntryAndSelfLoops(t *testing.T) {
    m := ssa.NewModule()
    fn := m.CreateFunc("loops", ssa.Void)
    x := fn.AddParam("x", ssa.Int1)
    entry := fn.CreateBlock("entry")
    b1 := fn.CreateBlock("b1")
    b2 := fn.CreateBlock("b2")
    ssa.NewBuilder(entry).Branch(x, b1, b2)
    ssa.NewBuilder(b1).Jump(b1)
    ssa.NewBuilder(b2).Jump(b2)
    require.NoError(t, ssa.Verify(fn))
    require.False(t, BlockMerge{}.Apply(fn))
}

func TestBlockMerge_UnreachableCandidate(t *testing.T) {
    s := buildSiblings()
    dead := s.fn.CreateBlock("dead")
    bd := ssa.NewBuilder(dead)
    bd.Add(s.fn.Params[0], s.fn.Params[1])
    bd.Jump(s.succ)

    /* blocks without predecessors are never erased, nor retained */
    require.True(t, BlockMerge{}.Apply(s.fn))
    assert.Equal(t, []*ssa.BasicBlock { s.entry, s.b2, s.succ, dead }, s.fn.Blocks)
}

// buildPhiSiblings builds the sibling blocks, with succ returning a Phi node
// over the given incoming values.
func buildPhiSiblings(in func(s *_Siblings) (ssa.Value, ssa.Value)) (*_Siblings, *ssa.IrPhi) {
    s := buildSiblings()
    v1, v2 := in(s)
    s.succ.Term = nil
    bd := ssa.NewBuilder(s.succ)
    phi := bd.Phi(ssa.Int32, ssa.IrPhiEdge { B: s.b1, V: v1 }, ssa.IrPhiEdge { B: s.b2, V: v2 })
    bd.Return(phi)
    return s, phi
}

func TestBlockMerge_PhiLocalValues(t *testing.T) {
    s, phi := buildPhiSiblings(func(s *_Siblings) (ssa.Value, ssa.Value) {
        return s.b1.Ins[0].(ssa.Value), s.b2.Ins[0].(ssa.Value)
    })
    require.NoError(t, ssa.Verify(s.fn))
    ref, err := emu.NewEmulator().Run(s.fn, 1, 2)
    require.NoError(t, err)

    /* merged, the Phi node keeps the value of b2 only */
    require.True(t, BlockMerge{}.Apply(s.fn))
    require.NoError(t, ssa.Verify(s.fn), s.fn.String())
    assert.Equal(t, []ssa.IrPhiEdge {{ B: s.b2, V: s.b2.Ins[0].(ssa.Value) }}, phi.In)
    ret, err := emu.NewEmulator().Run(s.fn, 1, 2)
    require.NoError(t, err)
    assert.Equal(t, ref, ret)
}

func TestBlockMerge_PhiSameValue(t *testing.T) {
    s, phi := buildPhiSiblings(func(s *_Siblings) (ssa.Value, ssa.Value) {
        return s.fn.Params[1], s.fn.Params[1]
    })
    require.True(t, BlockMerge{}.Apply(s.fn))
    require.NoError(t, ssa.Verify(s.fn), s.fn.String())
    assert.Len(t, phi.In, 1)
}

func TestBlockMerge_PhiDifferentValues(t *testing.T) {
    s, _ := buildPhiSiblings(func(s *_Siblings) (ssa.Value, ssa.Value) {
        return s.fn.Params[0], s.fn.Params[1]
    })
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_PhiOneLocalValue(t *testing.T) {
    s, _ := buildPhiSiblings(func(s *_Siblings) (ssa.Value, ssa.Value) {
        return s.b1.Ins[0].(ssa.Value), s.fn.Params[1]
    })
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_MultiplePhis(t *testing.T) {
    s, _ := buildPhiSiblings(func(s *_Siblings) (ssa.Value, ssa.Value) {
        return s.fn.Params[1], s.fn.Params[1]
    })
    ssa.NewBuilder(s.succ).Phi(ssa.Int32,
        ssa.IrPhiEdge { B: s.b1, V: s.fn.Params[0] },
        ssa.IrPhiEdge { B: s.b2, V: s.fn.Params[0] },
    )
    require.NoError(t, ssa.Verify(s.fn))
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_PhiInCandidate(t *testing.T) {
    s := buildSiblings()
    ssa.NewBuilder(s.b1).Phi(ssa.Int32, ssa.IrPhiEdge { B: s.entry, V: s.fn.Params[0] })
    ssa.NewBuilder(s.b2).Phi(ssa.Int32, ssa.IrPhiEdge { B: s.entry, V: s.fn.Params[0] })
    require.NoError(t, ssa.Verify(s.fn))
    require.False(t, BlockMerge{}.Apply(s.fn))
}

func TestBlockMerge_ThreeSiblings(t *testing.T) {
    m := ssa.NewModule()
    fn := m.CreateFunc("three", ssa.Int32)
    x := fn.AddParam("x", ssa.Int32)
    entry := fn.CreateBlock("entry")
    b1 := fn.CreateBlock("b1")
    b2 := fn.CreateBlock("b2")
    b3 := fn.CreateBlock("b3")
    succ := fn.CreateBlock("succ")
    ssa.NewBuilder(entry).Switch(x, b3, ssa.IrCase { V: 1, To: b1 }, ssa.IrCase { V: 2, To: b2 }, ssa.IrCase { V: 3, To: b1 })
    for _, bb := range []*ssa.BasicBlock { b1, b2, b3 } {
        bd := ssa.NewBuilder(bb)
        bd.Mul(x, x)
        bd.Jump(succ)
    }
    ssa.NewBuilder(succ).Return(x)
    require.NoError(t, ssa.Verify(fn))

    /* b1 goes into b2, then b2 goes into b3 */
    ub := LoadStat(&UpdatedBranchTargets)
    require.True(t, BlockMerge{}.Apply(fn))
    require.NoError(t, ssa.Verify(fn), fn.String())
    assert.Equal(t, []*ssa.BasicBlock { entry, b3, succ }, fn.Blocks)
    assert.Equal(t, []*ssa.BasicBlock { b3 }, entry.Successors())
    assert.Equal(t, ub + 2 + 3, LoadStat(&UpdatedBranchTargets))
}

func TestBlockMerge_DuplicateRoundTrip(t *testing.T) {
    fn, _ := buildSum()
    require.True(t, new(Duplicate).Apply(fn, Reachability(fn, ssa.BuildDominatorTree(fn))))
    require.Len(t, fn.Blocks, 4)

    /* the two clones collapse into one */
    require.True(t, BlockMerge{}.Apply(fn))
    require.NoError(t, ssa.Verify(fn), fn.String())
    head, els, tail := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
    assert.Len(t, fn.Blocks, 3)
    assert.Nil(t, findBlock(fn, "clone-1-0"))
    assert.Equal(t, "clone-2-0", els.Name)
    assert.Equal(t, []*ssa.BasicBlock { els }, head.Successors())
    assert.Equal(t, []*ssa.BasicBlock { tail }, els.Successors())
    require.Len(t, tail.Phi, 1)
    assert.Len(t, tail.Phi[0].In, 1)

    /* still computes a + b */
    ret, err := emu.NewEmulator().Run(fn, 3, 4)
    require.NoError(t, err)
    assert.Equal(t, int64(7), ret)
}

func TestBlockMerge_PreservesSemantics(t *testing.T) {
    f := gofakeit.New(8)
    in := sampleInputs(f, 32)
    merged := 0
    for i := 0; i < 100; i++ {
        seed := f.Int64() | 1
        nb := f.Number(1, 12)
        ref := randomFunc(gofakeit.New(seed), nb)
        fn := randomFunc(gofakeit.New(seed), nb)

        /* duplicate, then merge */
        new(Duplicate).Apply(fn, Reachability(fn, ssa.BuildDominatorTree(fn)))
        if (BlockMerge{}).Apply(fn) {
            merged++
        }

        /* still well-formed, and computes the same thing */
        require.NoError(t, ssa.Verify(fn), fn.String())
        require.Equal(t, runSamples(t, ref, in), runSamples(t, fn, in), "before:\n%s\n\nafter:\n%s", ref, fn)
    }
    require.NotZero(t, merged)
}
