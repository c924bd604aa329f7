// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializes writers of the same key while letting unrelated keys
// proceed. Two keys may share a stripe; that only costs concurrency.
type keyLocks [lockStripes]sync.RWMutex

func (l *keyLocks) of(key string) *sync.RWMutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l[h.Sum32()%lockStripes]
}
