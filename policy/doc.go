// Package policy holds the tunables of the importance engine: adj bands and
// the time windows used by the seed pass, the cached slot assignment and the
// freeze decision. A Policy can be persisted as a YAML Config.
package policy
