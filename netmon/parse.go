package netmon

import (
	"strconv"
	"strings"
)

// Connection is one parsed established TCP connection.
type Connection struct {
	ProcessName string
	PID         int32
	RemoteHost  string
	RemotePort  int
}

// parseConnectionLine extracts (process, pid, remote host, remote port) from
// one lsof output line of the form
//
//	COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME
//
// where NAME holds "local->remote". Lines without a usable remote endpoint
// are skipped, not errors: header lines, listeners, and truncated output all
// land here.
func parseConnectionLine(line string) (Connection, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Connection{}, false
	}

	pid, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil || pid <= 0 {
		return Connection{}, false
	}

	var remote string
	for _, field := range fields[2:] {
		if idx := strings.Index(field, "->"); idx >= 0 {
			remote = field[idx+2:]
			break
		}
	}
	if remote == "" {
		return Connection{}, false
	}
	// lsof appends the connection state in parentheses when -s is not used
	if idx := strings.IndexByte(remote, '('); idx >= 0 {
		remote = strings.TrimSpace(remote[:idx])
	}

	host, port, ok := splitHostPort(remote)
	if !ok || host == "" {
		return Connection{}, false
	}
	return Connection{
		ProcessName: fields[0],
		PID:         int32(pid),
		RemoteHost:  host,
		RemotePort:  port,
	}, true
}

// splitHostPort handles both IPv4 "addr:port" and IPv6 "[addr]:port". The
// split is on the last colon: IPv6 addresses contain colons of their own.
func splitHostPort(endpoint string) (string, int, bool) {
	if strings.HasPrefix(endpoint, "[") {
		closing := strings.Index(endpoint, "]")
		if closing < 0 {
			return "", 0, false
		}
		host := endpoint[1:closing]
		rest := endpoint[closing+1:]
		if !strings.HasPrefix(rest, ":") {
			return "", 0, false
		}
		port, err := strconv.Atoi(rest[1:])
		if err != nil {
			return "", 0, false
		}
		return host, port, true
	}

	idx := strings.LastIndexByte(endpoint, ':')
	if idx < 0 {
		return "", 0, false
	}
	port, err := strconv.Atoi(endpoint[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return endpoint[:idx], port, true
}
