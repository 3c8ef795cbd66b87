//go:build darwin

package procinfo

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// listProcessesFallback walks kern.proc.all directly when the higher-level
// table query fails. Names come from the kernel's short comm field; paths are
// left empty and window signals are filled by the caller.
func listProcessesFallback() ([]Snapshot, error) {
	kprocs, err := unix.SysctlKinfoProcSlice("kern.proc.all")
	if err != nil {
		return nil, err
	}
	snapshots := make([]Snapshot, 0, len(kprocs))
	for i := range kprocs {
		pid := int32(kprocs[i].Proc.P_pid)
		if pid <= 0 {
			continue
		}
		comm := kprocs[i].Proc.P_comm[:]
		name := string(bytes.TrimRight(int8SliceToBytes(comm), "\x00"))
		if name == "" {
			continue
		}
		snapshots = append(snapshots, Snapshot{PID: pid, Name: name})
	}
	return snapshots, nil
}

func int8SliceToBytes(s []int8) []byte {
	b := make([]byte, len(s))
	for i, c := range s {
		b[i] = byte(c)
	}
	return b
}
