// Package cache defines the disk-backed store holding one snapshot per
// repository key under CachePath/repo/<host>/<owner>/<repo>/. Each entry is a
// freshness timestamp record, the serialized release list and a pre-rendered
// HTML document. Writes go through temp file + rename so concurrent readers
// see either the old or the new complete snapshot, and callers write the
// timestamp record last so it can never be newer than the payload it
// protects. The fetch coordinator depends on this package to decide
// Fresh/Stale without duplicating filesystem logic.
package cache
