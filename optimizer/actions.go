package optimizer

// Action is a hook run around every iteration. Returning true stops
// Optimize: a pre-iteration stop ends in StateStopped, a post-iteration stop
// in StateConverged.
type Action func(o *SparseOptimizer, iteration int) bool

// TerminateOnSmallGain stops once an iteration improves the robust chi² by
// a relative gain χ²_prev/χ²_cur − 1 in [0, threshold), or reaches zero.
func TerminateOnSmallGain(threshold float64) Action {
	last := 0.0
	return func(o *SparseOptimizer, iteration int) bool {
		if iteration == 0 {
			last = o.initialChi2
		}
		cur := o.ActiveRobustChi2()
		prev := last
		last = cur
		if cur == 0 {
			return true
		}
		gain := prev/cur - 1

		return gain >= 0 && gain < threshold
	}
}
