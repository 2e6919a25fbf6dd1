package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
)

// Device is one host found listening on the raw-print port.
type Device struct {
	IP      string        `json:"ip"`
	Port    int           `json:"port"`
	Latency time.Duration `json:"latency_ms"`
}

// Progress is reported to the observer after every probe completion.
// Scanned is monotonically non-decreasing and Found never exceeds it.
type Progress struct {
	Scanned int `json:"scanned"`
	Total   int `json:"total"`
	Found   int `json:"found"`
}

// ProgressFunc observes scan progress. It is called under the prober's lock,
// so callbacks see consistent, ordered snapshots.
type ProgressFunc func(Progress)

// Transport is the connect-only probe capability the prober needs.
type Transport interface {
	Available() bool
	Probe(ctx context.Context, ip string, port int, timeout time.Duration) (time.Duration, error)
}

// Prober scans an IPv4 /24 subnet for devices listening on a fixed port
// using a bounded pool of concurrent workers. Discovery is best-effort:
// missing capabilities degrade to an empty result, never an error.
type Prober struct {
	transport    Transport
	port         int
	concurrency  int
	probeTimeout time.Duration

	// hosts overrides subnet derivation; used by tests.
	hosts []string
}

func NewProber(t Transport, cfg *config.DiscoveryConfig) *Prober {
	p := &Prober{
		transport:    t,
		port:         cfg.Port,
		concurrency:  cfg.Concurrency,
		probeTimeout: cfg.ProbeTimeout,
	}
	if p.port == 0 {
		p.port = 9100
	}
	if p.concurrency < 1 {
		p.concurrency = 30
	}
	if p.probeTimeout <= 0 {
		p.probeTimeout = 450 * time.Millisecond
	}
	return p
}

// SetHosts fixes the candidate host list instead of deriving it from the
// local interface address.
func (p *Prober) SetHosts(hosts []string) {
	p.hosts = hosts
}

// Scan probes every candidate host and returns the listening devices sorted
// ascending by measured latency, fastest first.
func (p *Prober) Scan(ctx context.Context, onProgress ProgressFunc) ([]Device, error) {
	if p.transport == nil || !p.transport.Available() {
		return []Device{}, nil
	}

	hosts := p.hosts
	if hosts == nil {
		hosts = subnetHosts(localIPv4())
	}
	if len(hosts) == 0 {
		return []Device{}, nil
	}

	var (
		mu      sync.Mutex
		found   []Device
		scanned int
	)

	report := func() {
		if onProgress != nil {
			onProgress(Progress{Scanned: scanned, Total: len(hosts), Found: len(found)})
		}
	}

	hostCh := make(chan string)
	var wg sync.WaitGroup

	workers := p.concurrency
	if workers > len(hosts) {
		workers = len(hosts)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range hostCh {
				latency, err := p.transport.Probe(ctx, host, p.port, p.probeTimeout)

				mu.Lock()
				scanned++
				if err == nil {
					found = append(found, Device{IP: host, Port: p.port, Latency: latency})
				}
				report()
				mu.Unlock()
			}
		}()
	}

	for _, host := range hosts {
		select {
		case <-ctx.Done():
			close(hostCh)
			wg.Wait()
			return sortByLatency(found), ctx.Err()
		case hostCh <- host:
		}
	}
	close(hostCh)
	wg.Wait()

	return sortByLatency(found), nil
}

func sortByLatency(devices []Device) []Device {
	if devices == nil {
		return []Device{}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Latency < devices[j].Latency
	})
	return devices
}

// subnetHosts generates the 254 host addresses of the /24 containing ip.
func subnetHosts(ip net.IP) []string {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	hosts := make([]string, 0, 254)
	for i := 1; i <= 254; i++ {
		hosts = append(hosts, fmt.Sprintf("%d.%d.%d.%d", ip4[0], ip4[1], ip4[2], i))
	}
	return hosts
}

// localIPv4 finds the first non-loopback IPv4 address of this host.
func localIPv4() net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}
