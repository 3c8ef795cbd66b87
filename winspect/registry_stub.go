//go:build !darwin || !cgo

package winspect

// Without a compositor registry the engine still runs; every pid simply
// reports zero window signals.
type hostRegistry struct{}

func (hostRegistry) ListWindows() ([]Window, error) {
	return nil, nil
}
