package geometry

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProvider struct {
	geo    Geometry
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ActiveWindowGeometry() (Geometry, error) {
	f.calls.Add(1)
	return f.geo, f.err
}

func (f *fakeProvider) Close() error {
	f.closed.Store(true)
	return nil
}

func TestRequestProducesCorrelatedResult(t *testing.T) {
	p := &fakeProvider{geo: Geometry{X: 10, Y: 20, Width: 640, Height: 480}}
	w := NewWorker(p)
	defer w.Stop()

	id := w.Request(42)

	select {
	case res := <-w.Results():
		if res.ID != id {
			t.Fatalf("result ID = %d, want %d", res.ID, id)
		}
		if res.Window != 42 {
			t.Fatalf("result window = %d, want 42", res.Window)
		}
		if res.Geometry != p.geo {
			t.Fatalf("result geometry = %+v, want %+v", res.Geometry, p.geo)
		}
	case <-time.After(time.Second):
		t.Fatal("no result received")
	}
}

func TestRequestIDsAreMonotonic(t *testing.T) {
	p := &fakeProvider{}
	w := NewWorker(p)
	defer w.Stop()

	first := w.Request(1)
	second := w.Request(1)
	if second <= first {
		t.Fatalf("request IDs not monotonic: %d then %d", first, second)
	}
}

func TestProviderFailureProducesNoResult(t *testing.T) {
	p := &fakeProvider{err: errors.New("window gone")}
	w := NewWorker(p)
	defer w.Stop()

	w.Request(7)

	select {
	case res := <-w.Results():
		t.Fatalf("unexpected result %+v for failed lookup", res)
	case <-time.After(200 * time.Millisecond):
	}
	if p.calls.Load() == 0 {
		t.Fatal("provider was never called")
	}
}

func TestEmptyGeometry(t *testing.T) {
	cases := []struct {
		geo   Geometry
		empty bool
	}{
		{Geometry{Width: 100, Height: 100}, false},
		{Geometry{Width: 0, Height: 100}, true},
		{Geometry{Width: 100, Height: 0}, true},
		{Geometry{Width: -1, Height: -1}, true},
		{Geometry{}, true},
	}
	for _, tc := range cases {
		if got := tc.geo.Empty(); got != tc.empty {
			t.Errorf("Empty(%+v) = %v, want %v", tc.geo, got, tc.empty)
		}
	}
}

func TestStopClosesProvider(t *testing.T) {
	p := &fakeProvider{}
	w := NewWorker(p)
	w.Stop()

	deadline := time.After(time.Second)
	for !p.closed.Load() {
		select {
		case <-deadline:
			t.Fatal("provider not closed after Stop")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Request after Stop must not panic.
	w.Request(1)
}
