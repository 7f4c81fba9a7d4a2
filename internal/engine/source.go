package engine

import (
	"context"

	"github.com/roach88/rmlstar/internal/ir"
)

// DataSource fetches the row-set of a rule's logical source.
//
// The returned rows contain at least the requested references, are
// deduplicated, and exclude rows with a null in any requested reference.
// Requesting ir.RecordColumn yields the identity of the source record.
type DataSource interface {
	Fetch(ctx context.Context, rule ir.Rule, refs []string) (ir.RowSet, error)
}

// Document is the raw hierarchical form of a logical source. Flattened
// row-sets cannot tell an empty array from an absent one; documents can.
type Document interface {
	// HasEmptyArray reports whether any record holds an empty array at ref.
	HasEmptyArray(ref string) bool

	// EmptyOwners returns, for each record whose array at ref is empty, a
	// row with the values of ownerRefs for that record.
	EmptyOwners(ref string, ownerRefs []string) ([]ir.Row, error)
}

// DocumentLoader loads the hierarchical document behind a rule's source.
// Sources without nested arrays return a Document with no empty arrays.
type DocumentLoader interface {
	Load(ctx context.Context, rule ir.Rule) (Document, error)
}

// Sink receives the statement set of one partition.
type Sink interface {
	Write(ctx context.Context, partition string, set *ir.StatementSet) error
}
