//go:build vrpcheck

package vrp

// assertSanity runs the full O(n) invariant check after every mutation.
// Enabled only under the vrpcheck build tag; far too slow for real runs.
func (r *Route) assertSanity() {
	if err := r.CheckInvariants(); err != nil {
		panic(err)
	}
}
