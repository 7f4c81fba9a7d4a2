package engine

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// BlankNodeAllocator mints blank node identifiers that are unique across a
// whole materialization run.
//
// One allocator is shared by every partition worker. Labels are namespaced
// by the run token so statement sets from different runs can be merged
// without collisions.
//
// Thread-safety: BlankNodeAllocator is safe for concurrent use (atomic
// counter).
type BlankNodeAllocator struct {
	prefix string
	seq    atomic.Int64
}

// NewBlankNodeAllocator creates an allocator. An empty runToken yields the
// plain labels b1, b2, ...
func NewBlankNodeAllocator(runToken string) *BlankNodeAllocator {
	prefix := "b"
	if runToken != "" {
		ns := strings.ReplaceAll(runToken, "-", "")
		if len(ns) > 12 {
			ns = ns[len(ns)-12:]
		}
		prefix = "r" + ns + "b"
	}
	return &BlankNodeAllocator{prefix: prefix}
}

// Next returns the next blank node term ("_:" + label).
func (a *BlankNodeAllocator) Next() string {
	return "_:" + a.prefix + strconv.FormatInt(a.seq.Add(1), 10)
}

// Issued returns how many identifiers have been minted.
func (a *BlankNodeAllocator) Issued() int64 {
	return a.seq.Load()
}
