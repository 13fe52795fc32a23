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
)

type TypeKind uint8

const (
    K_void TypeKind = iota
    K_int
    K_ptr
)

// Type is the type of an SSA value. Only the integer width matters for
// integer types, pointers are opaque references to memory cells.
type Type struct {
    Kind TypeKind
    Bits uint8
}

var (
    Void  = Type { Kind: K_void }
    Ptr   = Type { Kind: K_ptr, Bits: 64 }
    Int1  = IntType(1)
    Int8  = IntType(8)
    Int16 = IntType(16)
    Int32 = IntType(32)
    Int64 = IntType(64)
)

func IntType(bits uint8) Type {
    if bits == 0 || bits > 64 {
        panic(fmt.Sprintf("invalid integer width: %d", bits))
    } else {
        return Type { Kind: K_int, Bits: bits }
    }
}

func (self Type) IsInt() bool {
    return self.Kind == K_int
}

func (self Type) IsPtr() bool {
    return self.Kind == K_ptr
}

func (self Type) IsVoid() bool {
    return self.Kind == K_void
}

// Wrap truncates v to the width of the type. Integers wider than one bit
// are kept sign-extended, i1 is kept as 0 or 1.
func (self Type) Wrap(v int64) int64 {
    switch {
        case self.Kind != K_int : return v
        case self.Bits == 64    : return v
        case self.Bits == 1     : return v & 1
        default                 : s := 64 - uint(self.Bits); return (v << s) >> s
    }
}

// Unsigned returns the zero-extended bit pattern of v in this type.
func (self Type) Unsigned(v int64) uint64 {
    if self.Kind != K_int || self.Bits == 64 {
        return uint64(v)
    } else {
        return uint64(v) & ((1 << self.Bits) - 1)
    }
}

func (self Type) String() string {
    switch self.Kind {
        case K_void : return "void"
        case K_int  : return fmt.Sprintf("i%d", self.Bits)
        case K_ptr  : return "ptr"
        default     : panic("unreachable")
    }
}
