// Package pathcodec encodes a comment's position in its thread as a
// materialized path: the resource id followed by every ancestor comment id
// and finally the comment's own id, joined by Separator.
package pathcodec

import (
	"regexp"
	"strings"
)

// Separator joins path segments. It cannot appear inside a UUID, and
// resource ids containing it are rejected by ValidSegment.
const Separator = "->"

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// FromChain joins ids into a path. An empty chain yields "".
func FromChain(ids ...string) string {
	return strings.Join(ids, Separator)
}

// Append extends path by one segment. It is the only way paths grow.
func Append(path, id string) string {
	if path == "" {
		return id
	}
	return path + Separator + id
}

// Split is the inverse of FromChain.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Depth returns the depth of the node a path identifies; root comments
// (resource->comment) are at depth 0 and a bare resource id is at -1.
func Depth(path string) int {
	return len(Split(path)) - 2
}

// Segments counts the segments in path.
func Segments(path string) int {
	return len(Split(path))
}

// IsDescendantOrSelf reports whether path is prefix itself or lies below it.
// The match is taken at a segment boundary so that resource "r1" does not
// capture paths of resource "r10".
func IsDescendantOrSelf(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+Separator)
}

// IsChild reports whether path is exactly one comment segment below parent.
func IsChild(path, parent string) bool {
	return childRegexp(parent).MatchString(path)
}

// ChildPattern returns an anchored regular expression matching paths exactly
// one UUID segment deeper than parent. The syntax is accepted by Go, MongoDB
// and Postgres.
func ChildPattern(parent string) string {
	return "^" + regexp.QuoteMeta(parent+Separator) + uuidPattern + "$"
}

// SubtreePattern returns an anchored regular expression matching root itself
// and every path below it.
func SubtreePattern(root string) string {
	return "^" + regexp.QuoteMeta(root) + "(" + regexp.QuoteMeta(Separator) + "|$)"
}

// ValidSegment reports whether id can be used as a path segment.
func ValidSegment(id string) bool {
	return id != "" && !strings.Contains(id, Separator)
}

func childRegexp(parent string) *regexp.Regexp {
	return regexp.MustCompile(ChildPattern(parent))
}
