// Package registry declares the FormatterRegistry capability spec.md §1
// lists as out of scope beyond its interface: a lookup from filesystem
// name to a Formatter implementation, so a caller with multiple
// formatter packages (this one plus, say, FAT/NTFS/exFAT ones spec.md
// explicitly excludes) can dispatch without a type switch of its own.
// Nothing here is wired to an implementation; pkg/ext/format.Formatter
// is usable directly without going through a registry.
package registry

import "context"

// Formatter is the minimal capability a registry entry must provide —
// the same shape pkg/ext/format.Formatter implements.
type Formatter interface {
	SupportedPlatforms() []string
}

// Registry looks up a Formatter by filesystem name.
type Registry interface {
	Register(name string, f Formatter)
	Lookup(ctx context.Context, name string) (Formatter, bool)
	Names() []string
}
