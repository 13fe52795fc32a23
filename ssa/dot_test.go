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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestFunc_DOT(t *testing.T) {
    fn, _ := buildDiamondLoop()
    buf, err := fn.DOT()
    require.NoError(t, err)
    src := string(buf)
    println(src)
    assert.Contains(t, src, `digraph dl {`)
    assert.Contains(t, src, `entry -> head [label=goto];`)
    assert.Contains(t, src, `head -> left [label=true];`)
    assert.Contains(t, src, `head -> right [label=false];`)
    assert.Contains(t, src, `right -> head [label=false];`)
    assert.Contains(t, src, `shape=box`)
}

func TestFunc_DOTSwitch(t *testing.T) {
    fn := NewModule().CreateFunc("sw", Void)
    x := fn.AddParam("x", Int32)
    entry := fn.CreateBlock("entry")
    b1 := fn.CreateBlock("b1")
    exit := fn.CreateBlock("exit")
    NewBuilder(entry).Switch(x, exit, IrCase { V: 7, To: b1 }, IrCase { V: 8, To: b1 })
    NewBuilder(b1).Jump(b1)
    NewBuilder(exit).Return(nil)
    buf, err := fn.DOT()
    require.NoError(t, err)
    src := string(buf)
    assert.Contains(t, src, `entry -> b1 [label=7];`)
    assert.Contains(t, src, `entry -> b1 [label=8];`)
    assert.Contains(t, src, `entry -> exit [label=otherwise];`)
    assert.Contains(t, src, `b1 -> b1 [label=goto];`)
}
