// Package types holds the value model shared by the bridge, the host entry
// points and the client: the opaque Image, the tagged Cell/Row result
// representation with its JSON encoding and strict accessors, and the typed
// Error returned by every fallible operation.
package types
