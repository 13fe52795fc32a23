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
	"github.com/cloudwego/bbdiv/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithSeed sets the seed of the pseudo-random generator used to select the
// blocks to duplicate, and the context value of every selected block.
//
// The same seed on the same function always gives the same result.
//
// The default value of this option is "0x5eed".
func WithSeed(seed uint64) Option {
	return func(o *opts.Options) { o.Seed = seed }
}

// WithVerify runs the IR verifier after every pass that changed the function.
//
// The default value of this option is "false".
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// WithoutMerge skips the duplicated block merging pass, so Diversify only
// duplicates blocks.
func WithoutMerge() Option {
	return func(o *opts.Options) { o.NoMerge = true }
}

// SetDefaultSeed sets the default seed for all functions from now on.
//
// This value can also be configured with the `BBDIV_SEED` environment
// variable.
//
// Returns the old opts.Seed value.
func SetDefaultSeed(seed uint64) uint64 {
	seed, opts.Seed = opts.Seed, seed
	return seed
}

func makeOptions(options []Option) opts.Options {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	return o
}
