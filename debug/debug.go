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

package debug

import (
	"github.com/cloudwego/bbdiv/internal/passes"
)

// A Stats records statistics about the transform passes since the process
// started.
type Stats struct {
	Duplicate DuplicateStats
	Merge     MergeStats
}

// A DuplicateStats records statistics about the duplication pass.
type DuplicateStats struct {
	Blocks int
}

// A MergeStats records statistics about the duplicated block merging pass.
type MergeStats struct {
	Blocks        int
	BranchTargets int
}

// GetStats returns statistics of the transform passes.
func GetStats() Stats {
	return Stats{
		Duplicate: DuplicateStats{
			Blocks: passes.LoadStat(&passes.DuplicatedBlocks),
		},
		Merge: MergeStats{
			Blocks:        passes.LoadStat(&passes.MergedBlocks),
			BranchTargets: passes.LoadStat(&passes.UpdatedBranchTargets),
		},
	}
}
