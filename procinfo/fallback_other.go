//go:build !darwin

package procinfo

import "errors"

func listProcessesFallback() ([]Snapshot, error) {
	return nil, errors.New("no process table fallback on this platform")
}
