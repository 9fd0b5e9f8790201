package renogy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeDriver records Open calls and hands out fakeSessions.
type fakeDriver struct {
	mu       sync.Mutex
	opens    int
	openErr  error
	sessions []*fakeSession

	// newSession customises each session before it is returned.
	newSession func(*fakeSession)

	// When gate is set, Open signals started and then waits for gate to
	// close (or ctx to end) before doing anything else.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) Open(ctx context.Context, _ string, _ time.Duration) (Session, error) {
	if f.gate != nil {
		if f.started != nil {
			f.started <- struct{}{}
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &fakeSession{
		battery: &BatteryData{Voltage: 13.2, Current: 4, Power: 52.8, SOC: 97, Temperature: 18},
		pv:      &PVData{Voltage: 19.5, Current: 3.1, Power: 60},
		load:    &LoadData{Voltage: 13.1, Current: 0.2, Power: 3},
	}
	if f.newSession != nil {
		f.newSession(s)
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeDriver) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type fakeSession struct {
	mu       sync.Mutex
	calls    []string
	closed   int
	closeErr error

	battery *BatteryData
	pv      *PVData
	load    *LoadData

	batteryErr error
	pvErr      error
	loadErr    error
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeSession) ReadBattery(context.Context) (*BatteryData, error) {
	s.record("battery")
	return s.battery, s.batteryErr
}

func (s *fakeSession) ReadPV(context.Context) (*PVData, error) {
	s.record("pv")
	return s.pv, s.pvErr
}

func (s *fakeSession) ReadLoad(context.Context) (*LoadData, error) {
	s.record("load")
	return s.load, s.loadErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

func (s *fakeSession) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errLink = errors.New("link lost")

// returnsWithin fails the test when fn does not return within d.
func returnsWithin(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not return within %v", what, d)
	}
}
