// Package btcrpc is the external Bitcoin-node adapter (§4.6): the only
// component in this module allowed to perform network I/O and retries,
// since consensus-reachable code must stay deterministic (§5).
package btcrpc

import "errors"

// ErrUnavailable wraps any failure reaching or querying the Bitcoin node.
// Per the error-kind taxonomy (§7) it never surfaces to consensus; callers
// retry with backoff and log.
var ErrUnavailable = errors.New("btcrpc: bitcoin node unavailable")
