package sync

import "fmt"

// CollectionApplyError reports a failure applying one collection's delta
// batch during pull. It is isolated to that collection's transaction: other
// collections in the same cycle still apply and the watermark still
// advances, so a persistently failing collection keeps re-appearing in
// subsequent deltas until fixed upstream.
type CollectionApplyError struct {
	Collection string
	Err        error
}

func (e *CollectionApplyError) Error() string {
	return fmt.Sprintf("applying deltas for collection %q: %v", e.Collection, e.Err)
}

func (e *CollectionApplyError) Unwrap() error {
	return e.Err
}
