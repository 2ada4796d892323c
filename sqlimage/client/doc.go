// Package client is a typed Go front end for the host request protocol.
//
// The client never opens a database itself. Each method serializes a
// types.Request into JSON and passes it to a caller-provided CallHost
// function, which is responsible for delivering the payload to a host (for
// example host.Host.HandleRequest, an RPC stub or a WASI import) and
// returning the JSON response.
//
// Usage:
//
//	h := host.New(host.Config{})
//	c := client.New(func(payload []byte) ([]byte, error) {
//	    return h.HandleRequest(context.Background(), payload)
//	})
//	image, err := c.Init("CREATE TABLE t(a); INSERT INTO t VALUES (1)")
//	rows, err := c.Query(image, "SELECT a FROM t")
//
// Errors reported by the host are rebuilt into *types.Error values carrying
// the host's ErrorType, so types.IsStatementError and friends work across
// the protocol boundary.
package client
