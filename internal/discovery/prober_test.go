package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
)

type fakeTransport struct {
	mu        sync.Mutex
	available bool
	latencies map[string]time.Duration
}

func (f *fakeTransport) Available() bool { return f.available }

func (f *fakeTransport) Probe(_ context.Context, ip string, _ int, _ time.Duration) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if latency, ok := f.latencies[ip]; ok {
		return latency, nil
	}
	return 0, errors.New("connection refused")
}

func testDiscoveryConfig() *config.DiscoveryConfig {
	return &config.DiscoveryConfig{
		Port:         9100,
		Concurrency:  4,
		ProbeTimeout: 50 * time.Millisecond,
	}
}

func TestScanFindsListeners(t *testing.T) {
	transport := &fakeTransport{
		available: true,
		latencies: map[string]time.Duration{
			"192.168.1.30": 12 * time.Millisecond,
			"192.168.1.10": 3 * time.Millisecond,
			"192.168.1.77": 40 * time.Millisecond,
		},
	}
	p := NewProber(transport, testDiscoveryConfig())
	p.SetHosts([]string{
		"192.168.1.10", "192.168.1.20", "192.168.1.30",
		"192.168.1.40", "192.168.1.50", "192.168.1.77",
	})

	devices, err := p.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("found %d devices, want 3", len(devices))
	}

	// Fastest first.
	want := []string{"192.168.1.10", "192.168.1.30", "192.168.1.77"}
	for i, ip := range want {
		if devices[i].IP != ip {
			t.Errorf("devices[%d] = %s, want %s", i, devices[i].IP, ip)
		}
	}
	for i := 1; i < len(devices); i++ {
		if devices[i].Latency < devices[i-1].Latency {
			t.Error("devices must be sorted ascending by latency")
		}
	}
}

func TestScanProgress(t *testing.T) {
	transport := &fakeTransport{
		available: true,
		latencies: map[string]time.Duration{"10.0.0.5": time.Millisecond},
	}
	hosts := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"}
	p := NewProber(transport, testDiscoveryConfig())
	p.SetHosts(hosts)

	var mu sync.Mutex
	var snapshots []Progress
	_, err := p.Scan(context.Background(), func(pr Progress) {
		mu.Lock()
		snapshots = append(snapshots, pr)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(snapshots) != len(hosts) {
		t.Fatalf("got %d progress reports, want %d", len(snapshots), len(hosts))
	}
	prev := 0
	for i, pr := range snapshots {
		if pr.Total != len(hosts) {
			t.Errorf("snapshot %d: total = %d, want %d", i, pr.Total, len(hosts))
		}
		if pr.Scanned != prev+1 {
			t.Errorf("snapshot %d: scanned = %d, want %d", i, pr.Scanned, prev+1)
		}
		prev = pr.Scanned
		if pr.Found > pr.Scanned {
			t.Errorf("snapshot %d: found %d exceeds scanned %d", i, pr.Found, pr.Scanned)
		}
	}
	last := snapshots[len(snapshots)-1]
	if last.Scanned != len(hosts) || last.Found != 1 {
		t.Errorf("final snapshot = %+v", last)
	}
}

func TestScanDegradedMode(t *testing.T) {
	t.Run("nil transport", func(t *testing.T) {
		p := NewProber(nil, testDiscoveryConfig())
		devices, err := p.Scan(context.Background(), nil)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(devices) != 0 {
			t.Errorf("found %d devices, want 0", len(devices))
		}
	})

	t.Run("unavailable transport", func(t *testing.T) {
		p := NewProber(&fakeTransport{available: false}, testDiscoveryConfig())
		devices, err := p.Scan(context.Background(), nil)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if devices == nil || len(devices) != 0 {
			t.Errorf("devices = %v, want empty slice", devices)
		}
	})
}

func TestScanCancellation(t *testing.T) {
	transport := &fakeTransport{available: true}
	cfg := testDiscoveryConfig()
	cfg.Concurrency = 1
	p := NewProber(transport, cfg)

	hosts := make([]string, 100)
	for i := range hosts {
		hosts[i] = "10.0.0.1"
	}
	p.SetHosts(hosts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Scan(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSubnetHosts(t *testing.T) {
	hosts := subnetHosts(net.ParseIP("192.168.1.42"))
	if len(hosts) != 254 {
		t.Fatalf("got %d hosts, want 254", len(hosts))
	}
	if hosts[0] != "192.168.1.1" {
		t.Errorf("first host = %s", hosts[0])
	}
	if hosts[253] != "192.168.1.254" {
		t.Errorf("last host = %s", hosts[253])
	}

	if got := subnetHosts(nil); got != nil {
		t.Errorf("nil ip should yield no hosts, got %v", got)
	}
}
