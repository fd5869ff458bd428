// Package cache provides the fetch-state cell shared by every cached
// collection: the tri-state fetched flag, the pending/fulfilled/rejected
// lifecycle, and monotonic request tokens that keep a stale, slow response
// from overwriting a fresher one.
package cache

// State is a point-in-time snapshot of a cell's lifecycle flags.
type State struct {
	Loading bool
	Fetched bool
	Err     error
}

// Cell tracks the fetch lifecycle of one cached collection. The zero value
// is ready to use: never requested, not loading, no error.
//
// Cell carries no lock of its own; the owning store's mutex guards it, which
// keeps "receive response, apply mutation" atomic from the caller's view.
type Cell struct {
	latest  uint64
	loading bool
	fetched bool
	err     error
}

// Begin marks the pending phase: loading set, previous error cleared. It
// returns the request token the eventual Resolve must present, and whether
// this fetch is the only one in flight (false means an older fetch was
// superseded and its response will be discarded).
func (c *Cell) Begin() (token uint64, sole bool) {
	sole = !c.loading
	c.latest++
	c.loading = true
	c.err = nil
	return c.latest, sole
}

// Resolve settles the fetch that holds token. A token that is not the latest
// issued is stale: Resolve reports false and changes nothing, so the caller
// must not apply the response. On the latest token the cell leaves the
// pending phase and the fetched flag is set regardless of outcome, which is
// what gates "do we need to fetch", never the emptiness of the cache.
func (c *Cell) Resolve(token uint64, err error) bool {
	if token != c.latest {
		return false
	}
	c.loading = false
	c.fetched = true
	c.err = err
	return true
}

// Reset returns the cell to never-requested and invalidates every
// outstanding token, so a fetch that was in flight when the owning cache was
// torn down resolves as a no-op.
func (c *Cell) Reset() {
	c.latest++
	c.loading = false
	c.fetched = false
	c.err = nil
}

// Invalidate clears the fetched flag so the next read refetches, without
// cancelling an in-flight request.
func (c *Cell) Invalidate() {
	c.fetched = false
}

func (c *Cell) Loading() bool { return c.loading }
func (c *Cell) Fetched() bool { return c.fetched }
func (c *Cell) Err() error    { return c.err }

// State snapshots the cell's flags.
func (c *Cell) State() State {
	return State{Loading: c.loading, Fetched: c.fetched, Err: c.err}
}
