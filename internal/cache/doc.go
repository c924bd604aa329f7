// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cache is the key-value cache engine. An Engine owns a store.Store,
// decides when and how values are compressed, applies TTLs lazily on lookup
// and runs a janitor that purges expired entries nobody reads again.
package cache
