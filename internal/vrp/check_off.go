//go:build !vrpcheck

package vrp

func (r *Route) assertSanity() {}
