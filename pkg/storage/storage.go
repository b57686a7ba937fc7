// Package storage archives imported source files on the local filesystem so
// every batch can be traced back to the exact file it came from.
package storage

import "context"

// Archiver stores a copy of a source file and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, srcPath string) (string, error)
}
