package player

// deferredOps holds at most one pending source load and one pending seek,
// recorded when the engine cannot honor the operation yet and applied the
// next time playback is requested. Some engines do not reliably accept a
// seek or play before any media has loaded; deferring converts "seek before
// ready" into "seek recorded, applied at next play".
//
// Only ever touched under the player's lock, so it carries no locking of
// its own.
type deferredOps struct {
	sourceURL string
	hasSource bool

	seekSec float64
	hasSeek bool
}

// deferSource records url as the pending source, overwriting any previous
// pending source.
func (d *deferredOps) deferSource(url string) {
	d.sourceURL = url
	d.hasSource = true
}

// takeSource retrieves and clears the pending source.
func (d *deferredOps) takeSource() (string, bool) {
	if !d.hasSource {
		return "", false
	}
	url := d.sourceURL
	d.sourceURL = ""
	d.hasSource = false
	return url, true
}

// deferSeek records seconds as the pending seek, overwriting any previous
// pending seek.
func (d *deferredOps) deferSeek(seconds float64) {
	d.seekSec = seconds
	d.hasSeek = true
}

// takeSeek retrieves and clears the pending seek.
func (d *deferredOps) takeSeek() (float64, bool) {
	if !d.hasSeek {
		return 0, false
	}
	sec := d.seekSec
	d.seekSec = 0
	d.hasSeek = false
	return sec, true
}

// dropSeek clears any pending seek without applying it.
func (d *deferredOps) dropSeek() {
	d.seekSec = 0
	d.hasSeek = false
}

// clear drops both pending operations. Called whenever the playlist is
// replaced or navigation switches tracks, since a stale deferred operation
// would otherwise apply to the wrong track.
func (d *deferredOps) clear() {
	d.sourceURL = ""
	d.hasSource = false
	d.dropSeek()
}
