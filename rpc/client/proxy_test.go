package client

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
)

func clientConfig(endpoints ...string) common.ClientConfig {
	return common.ClientConfig{
		Endpoints:     endpoints,
		MaxHARetry:    2,
		TimeoutSecond: 1,
	}
}

// scriptedMeta is a meta.IMetaService stub whose GetFileInfo behavior is
// driven by a per-call script. Operations without a script entry succeed.
// All other methods are inherited from the embedded nil interface and must
// not be reached by these tests.
type scriptedMeta struct {
	meta.IMetaService

	addr   string
	script func(call int) error

	mu     sync.Mutex
	calls  int
	closed bool
}

func (f *scriptedMeta) GetFileInfo(src string) (*meta.FileStatus, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.script != nil {
		if err := f.script(call); err != nil {
			return nil, err
		}
	}
	return &meta.FileStatus{Path: src, Owner: f.addr}, nil
}

func (f *scriptedMeta) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func alwaysStandby(f *scriptedMeta) func(int) error {
	return func(int) error { return &meta.StandbyError{Addr: f.addr} }
}

// buildProxy assembles a proxy from stubs without shuffling, so tests can
// reason about endpoint order.
func buildProxy(maxRetry int, stubs ...*scriptedMeta) (*metaProxy, []*scriptedMeta) {
	endpoints := make([]haEndpoint, len(stubs))
	for i, s := range stubs {
		endpoints[i] = haEndpoint{addr: s.addr, svc: s}
	}
	p := &metaProxy{endpoints: endpoints}
	if len(endpoints) > 1 {
		p.haEnabled = true
		p.maxRetry = maxRetry
	}
	return p, stubs
}

func stub(addr string) *scriptedMeta {
	return &scriptedMeta{addr: addr}
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

func TestNewMetaProxyRejectsBadAddresses(t *testing.T) {
	for _, addr := range []string{"", "nameservice", "host:", ":9000:extra", "host:port:extra"} {
		_, err := NewMetaProxy(clientConfig(addr), nil, nil, nil)
		var invalid *meta.InvalidAddressError
		if !errors.As(err, &invalid) {
			t.Errorf("address %q: got %v, want InvalidAddressError", addr, err)
		}
	}
}

func TestNewMetaProxyRequiresEndpoints(t *testing.T) {
	_, err := NewMetaProxy(clientConfig(), nil, nil, nil)
	var invalid *meta.InvalidAddressError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidAddressError", err)
	}
}

func TestHAEnabledOnlyWithMultipleEndpoints(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	single := newMetaProxy([]haEndpoint{{addr: "a:1", svc: stub("a:1")}}, 7, rnd)
	if single.haEnabled || single.maxRetry != 0 {
		t.Errorf("single endpoint: haEnabled=%v maxRetry=%d, want disabled with 0 retries",
			single.haEnabled, single.maxRetry)
	}

	double := newMetaProxy([]haEndpoint{
		{addr: "a:1", svc: stub("a:1")},
		{addr: "b:1", svc: stub("b:1")},
	}, 7, rnd)
	if !double.haEnabled || double.maxRetry != 7 {
		t.Errorf("two endpoints: haEnabled=%v maxRetry=%d, want enabled with 7 retries",
			double.haEnabled, double.maxRetry)
	}
}

func TestShuffleIsSeedDeterministicAndPreservesSet(t *testing.T) {
	build := func(seed int64) []string {
		endpoints := make([]haEndpoint, 8)
		for i := range endpoints {
			addr := fmt.Sprintf("node-%d:9000", i)
			endpoints[i] = haEndpoint{addr: addr, svc: stub(addr)}
		}
		p := newMetaProxy(endpoints, 1, rand.New(rand.NewSource(seed)))

		order := make([]string, len(p.endpoints))
		for i, ep := range p.endpoints {
			order[i] = ep.addr
		}
		return order
	}

	first, second := build(42), build(42)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", first, second)
		}
	}

	seen := make(map[string]bool)
	for _, addr := range first {
		seen[addr] = true
	}
	if len(seen) != 8 {
		t.Fatalf("shuffle lost endpoints: %v", first)
	}
}

func TestShuffleSpreadsFirstPositionUniformly(t *testing.T) {
	const (
		numEndpoints = 4
		rounds       = 4000
	)

	rnd := rand.New(rand.NewSource(7))
	firstCount := make(map[string]int, numEndpoints)
	for r := 0; r < rounds; r++ {
		endpoints := make([]haEndpoint, numEndpoints)
		for i := range endpoints {
			addr := fmt.Sprintf("node-%d:9000", i)
			endpoints[i] = haEndpoint{addr: addr, svc: stub(addr)}
		}
		p := newMetaProxy(endpoints, 1, rnd)
		firstCount[p.endpoints[0].addr]++
	}

	// every endpoint should open roughly its fair share of constructions,
	// otherwise new clients would pile onto the same instance first
	want := rounds / numEndpoints
	tolerance := want / 4
	for i := 0; i < numEndpoints; i++ {
		addr := fmt.Sprintf("node-%d:9000", i)
		got := firstCount[addr]
		if got < want-tolerance || got > want+tolerance {
			t.Errorf("endpoint %s landed first %d times in %d rounds, want within [%d, %d]",
				addr, got, rounds, want-tolerance, want+tolerance)
		}
	}
}

// --------------------------------------------------------------------------
// Failover
// --------------------------------------------------------------------------

func TestFailoverOnStandby(t *testing.T) {
	a, b := stub("a:1"), stub("b:1")
	a.script = alwaysStandby(a)
	p, _ := buildProxy(4, a, b)

	status, err := p.GetFileInfo("/x")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if status.Owner != "b:1" {
		t.Errorf("served by %s, want b:1", status.Owner)
	}
	if p.current != 1 {
		t.Errorf("current = %d, want 1", p.current)
	}
}

func TestFailoverOnTransportError(t *testing.T) {
	a, b := stub("a:1"), stub("b:1")
	a.script = func(int) error {
		return &meta.FailoverError{Addr: a.addr, Cause: errors.New("connection refused")}
	}
	p, _ := buildProxy(4, a, b)

	if _, err := p.GetFileInfo("/x"); err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
}

func TestMultiStepFailover(t *testing.T) {
	a, b, c := stub("a:1"), stub("b:1"), stub("c:1")
	a.script = alwaysStandby(a)
	b.script = func(int) error {
		return &meta.FailoverError{Addr: b.addr, Cause: errors.New("no route to host")}
	}
	p, _ := buildProxy(4, a, b, c)

	status, err := p.GetFileInfo("/x")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if status.Owner != "c:1" {
		t.Errorf("served by %s, want c:1", status.Owner)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = a:%d b:%d c:%d, want one each", a.calls, b.calls, c.calls)
	}
}

func TestEndpointRecoversMidRetry(t *testing.T) {
	// a is standby on the first probe but active again on the second;
	// with two endpoints the pointer wraps back to it.
	a, b := stub("a:1"), stub("b:1")
	a.script = func(call int) error {
		if call == 1 {
			return &meta.StandbyError{Addr: a.addr}
		}
		return nil
	}
	b.script = alwaysStandby(b)
	p, _ := buildProxy(4, a, b)

	status, err := p.GetFileInfo("/x")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if status.Owner != "a:1" {
		t.Errorf("served by %s, want a:1 after wrap-around", status.Owner)
	}
}

// --------------------------------------------------------------------------
// Exhaustion
// --------------------------------------------------------------------------

func TestExhaustionAfterMaxRetryFailovers(t *testing.T) {
	const maxRetry = 3

	a, b := stub("a:1"), stub("b:1")
	a.script = alwaysStandby(a)
	b.script = alwaysStandby(b)
	p, _ := buildProxy(maxRetry, a, b)

	_, err := p.GetFileInfo("/x")

	var rpcErr *meta.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("got %v, want RPCError", err)
	}
	if rpcErr.Attempts != maxRetry+1 {
		t.Errorf("attempts = %d, want %d", rpcErr.Attempts, maxRetry+1)
	}
	if total := a.calls + b.calls; total != maxRetry+1 {
		t.Errorf("total endpoint calls = %d, want %d", total, maxRetry+1)
	}

	var standby *meta.StandbyError
	if !errors.As(err, &standby) {
		t.Errorf("terminal error does not unwrap to the last StandbyError: %v", err)
	}
}

func TestExhaustionSurfacesTransportCause(t *testing.T) {
	cause := errors.New("connection reset by peer")

	a, b := stub("a:1"), stub("b:1")
	a.script = func(int) error { return &meta.FailoverError{Addr: a.addr, Cause: cause} }
	b.script = func(int) error { return &meta.FailoverError{Addr: b.addr, Cause: cause} }
	p, _ := buildProxy(1, a, b)

	_, err := p.GetFileInfo("/x")

	var rpcErr *meta.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("got %v, want RPCError", err)
	}
	if !errors.Is(rpcErr, cause) {
		t.Errorf("terminal error does not unwrap to the transport cause: %v", err)
	}

	// the synthetic wrapper must be stripped at exhaustion
	var failover *meta.FailoverError
	if errors.As(rpcErr.Cause, &failover) {
		t.Errorf("terminal cause is still wrapped in a FailoverError: %v", rpcErr.Cause)
	}
}

func TestNoRetryWhenHADisabled(t *testing.T) {
	a := stub("a:1")
	a.script = alwaysStandby(a)
	p, _ := buildProxy(5, a) // single endpoint, budget ignored

	_, err := p.GetFileInfo("/x")

	var rpcErr *meta.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("got %v, want RPCError", err)
	}
	if rpcErr.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", rpcErr.Attempts)
	}
	if a.calls != 1 {
		t.Errorf("endpoint called %d times, want 1", a.calls)
	}
}

func TestBusinessErrorsPassThrough(t *testing.T) {
	want := meta.NewPathError("mkdirs", "/x", "parent does not exist")

	a, b := stub("a:1"), stub("b:1")
	a.script = func(int) error { return want }
	p, _ := buildProxy(4, a, b)

	_, err := p.GetFileInfo("/x")
	if err != want { // identity, not equivalence: the proxy must not rewrap
		t.Fatalf("got %v, want the original error unchanged", err)
	}
	if p.current != 0 {
		t.Errorf("business error moved the active pointer to %d", p.current)
	}
	if b.calls != 0 {
		t.Errorf("business error reached the second endpoint")
	}
}

// --------------------------------------------------------------------------
// Active Pointer
// --------------------------------------------------------------------------

func TestStaleObservedDoesNotAdvance(t *testing.T) {
	p, _ := buildProxy(4, stub("a:1"), stub("b:1"), stub("c:1"))

	_, observed, err := p.getActive()
	if err != nil {
		t.Fatal(err)
	}

	p.failoverToNext(observed)
	if p.current != 1 {
		t.Fatalf("current = %d, want 1", p.current)
	}

	// second advance with the stale snapshot must be a no-op
	p.failoverToNext(observed)
	if p.current != 1 {
		t.Errorf("stale snapshot advanced the pointer to %d", p.current)
	}
}

func TestConcurrentDiscoveryAdvancesOnce(t *testing.T) {
	p, _ := buildProxy(4, stub("a:1"), stub("b:1"), stub("c:1"), stub("d:1"))

	_, observed, err := p.getActive()
	if err != nil {
		t.Fatal(err)
	}

	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			p.failoverToNext(observed)
		}()
	}
	wg.Wait()

	if p.current != 1 {
		t.Errorf("%d concurrent discoveries advanced the pointer to %d, want 1",
			goroutines, p.current)
	}
}

// --------------------------------------------------------------------------
// Close
// --------------------------------------------------------------------------

func TestCloseIsTerminalAndIdempotent(t *testing.T) {
	a, b := stub("a:1"), stub("b:1")
	p, _ := buildProxy(4, a, b)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Errorf("endpoints not closed: a=%v b=%v", a.closed, b.closed)
	}

	if _, err := p.GetFileInfo("/x"); !errors.Is(err, meta.ErrClosed) {
		t.Errorf("operation after close: got %v, want ErrClosed", err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
