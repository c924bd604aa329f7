// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"context"

	"github.com/staranto/kvcache/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args     []string
	Config   config.Type
	Context  context.Context
	Settings config.Settings
	// StartingDir is the working directory at startup.
	StartingDir string
}

// Namespace is the subcommand name used to scope config lookups.
func (m Meta) Namespace() string {
	if len(m.Args) > 1 {
		return m.Args[1]
	}
	return ""
}
