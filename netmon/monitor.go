package netmon

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"vigil/logger"

	"github.com/google/uuid"
	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	defaultListTimeout = 5 * time.Second
	defaultDNSTimeout  = 2 * time.Second
)

// Config bounds the two blocking calls of a network scan cycle. A hung
// utility or resolver stalls one cycle, never the scheduler.
type Config struct {
	ListTimeout time.Duration
	DNSTimeout  time.Duration
}

// Monitor produces classified connection snapshots. Zero value is not
// usable; construct with New.
type Monitor struct {
	cfg      Config
	resolver *net.Resolver
	now      func() time.Time

	// injectable for tests
	listConnections func(ctx context.Context) ([]Connection, error)
	lookupAddr      func(ctx context.Context, ip string) ([]string, error)
}

func New(cfg Config) *Monitor {
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = defaultListTimeout
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = defaultDNSTimeout
	}
	m := &Monitor{
		cfg:      cfg,
		resolver: net.DefaultResolver,
		now:      time.Now,
	}
	m.listConnections = m.listViaLsof
	m.lookupAddr = m.resolver.LookupAddr
	return m
}

// CheckConnections lists established outbound TCP connections and classifies
// each destination. Per-connection failures (reverse DNS, odd lines) skip
// that connection only; a failed listing fails the cycle.
func (m *Monitor) CheckConnections(ctx context.Context) ([]Result, error) {
	conns, err := m.listConnections(ctx)
	if err != nil {
		logger.Debugf("Connection listing failed, trying process table fallback: %v", err)
		conns, err = listViaProcessTable(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing connections: %w", err)
		}
	}

	results := make([]Result, 0, len(conns))
	for _, conn := range conns {
		domain := conn.RemoteHost
		if net.ParseIP(domain) != nil {
			if resolved := m.reverseResolve(ctx, domain); resolved != "" {
				domain = resolved
			}
		}

		tier, evidence := AnalyzeDestination(domain, conn.RemotePort)
		results = append(results, Result{
			ID:                uuid.NewString(),
			Timestamp:         m.now(),
			ProcessName:       conn.ProcessName,
			PID:               conn.PID,
			DestinationDomain: domain,
			DestinationPort:   conn.RemotePort,
			Protocol:          "TCP",
			Confidence:        tier,
			Message:           fmt.Sprintf("%s (PID: %d) connected to %s:%d", conn.ProcessName, conn.PID, domain, conn.RemotePort),
			Evidence:          evidence,
		})
	}
	return results, nil
}

// listViaLsof shells out to lsof restricted to established TCP connections.
// -n and -P keep addresses and ports numeric so parsing stays stable.
func (m *Monitor) listViaLsof(ctx context.Context) ([]Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ListTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "lsof", "-i", "TCP", "-s", "TCP:ESTABLISHED", "-n", "-P").Output()
	if err != nil {
		return nil, fmt.Errorf("lsof: %w", err)
	}

	var conns []Connection
	for _, line := range strings.Split(string(out), "\n") {
		if conn, ok := parseConnectionLine(line); ok {
			conns = append(conns, conn)
		}
	}
	return conns, nil
}

// listViaProcessTable enumerates established TCP sockets from the kernel
// tables directly. Slower name resolution, but no external binary needed.
func listViaProcessTable(ctx context.Context) ([]Connection, error) {
	stats, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, fmt.Errorf("socket tables: %w", err)
	}

	names := make(map[int32]string)
	var conns []Connection
	for _, st := range stats {
		if st.Status != "ESTABLISHED" || st.Raddr.IP == "" || st.Pid <= 0 {
			continue
		}
		name, ok := names[st.Pid]
		if !ok {
			if proc, perr := process.NewProcessWithContext(ctx, st.Pid); perr == nil {
				name, _ = proc.NameWithContext(ctx)
			}
			names[st.Pid] = name
		}
		conns = append(conns, Connection{
			ProcessName: name,
			PID:         st.Pid,
			RemoteHost:  st.Raddr.IP,
			RemotePort:  int(st.Raddr.Port),
		})
	}
	return conns, nil
}

// reverseResolve maps an IP back to a hostname, best effort. Empty result
// means the caller analyzes the raw IP.
func (m *Monitor) reverseResolve(ctx context.Context, ip string) string {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.DNSTimeout)
	defer cancel()

	names, err := m.lookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}
