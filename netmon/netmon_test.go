package netmon

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestAnalyzeDestination(t *testing.T) {
	tests := []struct {
		host string
		want Tier
	}{
		{"api.openai.com", TierDefinitive},
		{"API.OPENAI.COM", TierDefinitive},
		{"gateway.api.anthropic.com", TierDefinitive},
		{"huggingface.co", TierSuspicious},
		{"randomsite.ai", TierSuspicious},
		{"my-gpt-proxy.example.org", TierSuspicious},
		{"example.com", TierInformational},
		{"mail.example.org", TierSuspicious}, // short keyword "ai" matches inside "mail"
		{"cdn.example.org", TierInformational},
		{"93.184.216.34", TierInformational},
	}
	for _, tt := range tests {
		tier, evidence := AnalyzeDestination(tt.host, 443)
		if tier != tt.want {
			t.Errorf("%s: tier %s, want %s", tt.host, tier, tt.want)
		}
		if len(evidence) == 0 {
			t.Errorf("%s: empty evidence", tt.host)
		}
	}
}

func TestAnalyzeDestinationEvidenceNamesMatch(t *testing.T) {
	_, evidence := AnalyzeDestination("api.openai.com", 443)
	if !strings.Contains(evidence[0], "api.openai.com") || !strings.Contains(evidence[0], "443") {
		t.Fatalf("evidence missing domain or port: %v", evidence)
	}
}

func TestWindowDeduplicatesWithinBucket(t *testing.T) {
	w := NewWindow()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r := Result{PID: 10, DestinationDomain: "api.openai.com", Timestamp: base}
	if got, _ := w.Merge(base, []Result{r}); len(got) != 1 {
		t.Fatalf("first merge: %d entries", len(got))
	}

	// same pair 10 seconds later collapses into the retained entry
	later := r
	later.Timestamp = base.Add(10 * time.Second)
	if got, _ := w.Merge(later.Timestamp, []Result{later}); len(got) != 1 {
		t.Fatalf("10s duplicate not merged: %d entries", len(got))
	}

	// same pair 90 seconds apart is a fresh detection
	again := r
	again.Timestamp = base.Add(90 * time.Second)
	if got, _ := w.Merge(again.Timestamp, []Result{again}); len(got) != 2 {
		t.Fatalf("90s repeat not retained: %d entries", len(got))
	}
}

func TestWindowDistinguishesPidAndDomain(t *testing.T) {
	w := NewWindow()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got, _ := w.Merge(now, []Result{
		{PID: 1, DestinationDomain: "a.example", Timestamp: now},
		{PID: 2, DestinationDomain: "a.example", Timestamp: now},
		{PID: 1, DestinationDomain: "b.example", Timestamp: now},
	})
	if len(got) != 3 {
		t.Fatalf("distinct pairs collapsed: %d entries", len(got))
	}
}

func TestWindowExpiresOldEntries(t *testing.T) {
	w := NewWindow()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	w.Merge(base, []Result{{PID: 5, DestinationDomain: "old.example", Timestamp: base}})

	got, _ := w.Merge(base.Add(301*time.Second), []Result{
		{PID: 6, DestinationDomain: "new.example", Timestamp: base.Add(301 * time.Second)},
	})
	if len(got) != 1 || got[0].DestinationDomain != "new.example" {
		t.Fatalf("stale entry survived five-minute window: %+v", got)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow()
	now := time.Now()
	w.Merge(now, []Result{{PID: 1, DestinationDomain: "a.example", Timestamp: now}})
	w.Reset()
	if got, _ := w.Merge(now, nil); len(got) != 0 {
		t.Fatalf("reset left %d entries", len(got))
	}
}

func TestCheckConnectionsClassifiesAndResolves(t *testing.T) {
	m := New(Config{})
	m.listConnections = func(ctx context.Context) ([]Connection, error) {
		return []Connection{
			{ProcessName: "node", PID: 42, RemoteHost: "104.18.32.47", RemotePort: 443},
			{ProcessName: "chrome", PID: 7, RemoteHost: "93.184.216.34", RemotePort: 443},
		}, nil
	}
	m.lookupAddr = func(ctx context.Context, ip string) ([]string, error) {
		if ip == "104.18.32.47" {
			return []string{"api.anthropic.com."}, nil
		}
		return nil, context.DeadlineExceeded
	}

	results, err := m.CheckConnections(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.DestinationDomain != "api.anthropic.com" || first.Confidence != TierDefinitive {
		t.Fatalf("resolved connection misclassified: %+v", first)
	}
	if first.ID == "" || first.Timestamp.IsZero() {
		t.Fatalf("result missing id or timestamp: %+v", first)
	}
	if !strings.Contains(first.Message, "node") || !strings.Contains(first.Message, "42") {
		t.Fatalf("message missing process attribution: %q", first.Message)
	}

	// failed reverse lookup leaves the raw IP, classified informational
	second := results[1]
	if second.DestinationDomain != "93.184.216.34" || second.Confidence != TierInformational {
		t.Fatalf("unresolved connection misclassified: %+v", second)
	}
}

func TestCheckConnectionsSkipsHostnameResolution(t *testing.T) {
	m := New(Config{})
	m.listConnections = func(ctx context.Context) ([]Connection, error) {
		return []Connection{{ProcessName: "node", PID: 1, RemoteHost: "api.openai.com", RemotePort: 443}}, nil
	}
	m.lookupAddr = func(ctx context.Context, ip string) ([]string, error) {
		t.Fatal("reverse lookup attempted for a hostname")
		return nil, nil
	}

	results, err := m.CheckConnections(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 1 || results[0].Confidence != TierDefinitive {
		t.Fatalf("unexpected results: %+v", results)
	}
}
