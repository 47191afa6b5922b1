package darkerdb

import "encoding/json"

const (
	DefaultBaseURL  = "https://api.darkerdb.com"
	DefaultLimit    = 100
	DefaultCondense = true

	marketPath = "/v1/market"
)

// MarketSnapshot is one market document as returned by DarkerDB.
// Its structure is never inspected.
type MarketSnapshot = json.RawMessage

// Result is the outcome of a single market fetch: either a snapshot or the
// reason no snapshot is available.
type Result struct {
	Snapshot MarketSnapshot
	Err      error
}

// OK reports whether the fetch produced a snapshot.
func (r Result) OK() bool {
	return r.Err == nil
}
