package netmon

import "testing"

func TestParseConnectionLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Connection
		ok   bool
	}{
		{
			name: "ipv4 established",
			line: "chrome 1234 user 5u IPv4 0x0 0t0 TCP 10.0.0.2:51000->93.184.216.34:443",
			want: Connection{ProcessName: "chrome", PID: 1234, RemoteHost: "93.184.216.34", RemotePort: 443},
			ok:   true,
		},
		{
			name: "ipv4 with state suffix",
			line: "curl 999 user 6u IPv4 0x0 0t0 TCP 10.0.0.2:51001->151.101.1.140:443 (ESTABLISHED)",
			want: Connection{ProcessName: "curl", PID: 999, RemoteHost: "151.101.1.140", RemotePort: 443},
			ok:   true,
		},
		{
			name: "ipv6 bracket notation",
			line: "Safari 777 user 9u IPv6 0x0 0t0 TCP [fe80::1]:50000->[2606:4700::6810:85e5]:443",
			want: Connection{ProcessName: "Safari", PID: 777, RemoteHost: "2606:4700::6810:85e5", RemotePort: 443},
			ok:   true,
		},
		{
			name: "hostname remote",
			line: "node 42 user 20u IPv4 0x0 0t0 TCP 10.0.0.2:49152->api.openai.com:443",
			want: Connection{ProcessName: "node", PID: 42, RemoteHost: "api.openai.com", RemotePort: 443},
			ok:   true,
		},
		{name: "header", line: "COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME", ok: false},
		{name: "listener without remote", line: "sshd 88 root 3u IPv4 0x0 0t0 TCP *:22", ok: false},
		{name: "empty", line: "", ok: false},
		{name: "garbage pid", line: "x y z", ok: false},
		{name: "remote missing port", line: "x 10 user 3u IPv4 0x0 0t0 TCP 10.0.0.2:1->nohost", ok: false},
	}

	for _, tt := range tests {
		got, ok := parseConnectionLine(tt.line)
		if ok != tt.ok {
			t.Errorf("%s: ok=%v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestSplitHostPort(t *testing.T) {
	host, port, ok := splitHostPort("[::1]:8080")
	if !ok || host != "::1" || port != 8080 {
		t.Fatalf("ipv6 split: %q %d %v", host, port, ok)
	}
	if _, _, ok := splitHostPort("[::1]8080"); ok {
		t.Fatal("missing colon after bracket accepted")
	}
	if _, _, ok := splitHostPort("noport"); ok {
		t.Fatal("endpoint without port accepted")
	}
}
