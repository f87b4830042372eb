// Package hash provides the string hashing primitive used to shard the
// SharedKeys concurrent lookup table.
package hash

import "github.com/cespare/xxhash/v2"

// Bucket computes the xxHash64 of s, used to pick a shard in the SharedKeys
// lookup table so that reads rarely contend with the single-writer add path.
func Bucket(s string) uint64 {
	return xxhash.Sum64String(s)
}
