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
    `sync/atomic`
)

var (
    DuplicatedBlocks     int64
    MergedBlocks         int64
    UpdatedBranchTargets int64
)

func addStat(p *int64, v int) {
    atomic.AddInt64(p, int64(v))
}

func LoadStat(p *int64) int {
    return int(atomic.LoadInt64(p))
}
