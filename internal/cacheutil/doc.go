// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cacheutil holds the filesystem plumbing behind the durable store:
// directory resolution, key to file name mapping and atomic writes.
package cacheutil
