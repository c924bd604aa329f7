// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package command holds the kvcache subcommands. Each one opens a cache
// engine from its flags, runs one operation and renders the result through
// package output. serve is the only long running command.
package command
