// Package extension provides the template extensions registered by the
// renderer: service lookup, debug dumps, URL generation and facades.
package extension

import "github.com/goliatone/go-twig/pkg/engine"

var (
	_ engine.Extension = (*Container)(nil)
	_ engine.Extension = (*Debug)(nil)
	_ engine.Extension = (*Routing)(nil)
	_ engine.Extension = (*Facades)(nil)
)
