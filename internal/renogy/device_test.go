package renogy

import (
	"context"
	"testing"
	"time"
)

func TestDevice_NewDevice(t *testing.T) {
	d := NewDevice("f8:55:48:17:99:eb", 0, NewMockDriver())

	if d.Address() != "F8:55:48:17:99:EB" {
		t.Errorf("Address() = %q", d.Address())
	}
	if d.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", d.Timeout(), DefaultTimeout)
	}
	if d.IsConnected() {
		t.Error("new device should be disconnected")
	}
}

func TestDevice_MockLifecycle(t *testing.T) {
	ctx := context.Background()
	d := NewDevice("AA:BB:CC:DD:EE:FF", 10*time.Second, NewMockDriver())

	if !d.Connect(ctx) {
		t.Fatal("Connect() with mock driver = false")
	}
	if !d.IsConnected() {
		t.Fatal("IsConnected() after Connect() = false")
	}

	rec := d.ReadData(ctx)
	if rec.Status != StatusConnected {
		t.Fatalf("Status = %q, want connected (error %q)", rec.Status, rec.Error)
	}
	if rec.Error != "" {
		t.Errorf("Error = %q, want empty", rec.Error)
	}
	if rec.Battery == nil || *rec.Battery != MockBattery {
		t.Errorf("Battery = %+v, want %+v", rec.Battery, MockBattery)
	}
	if rec.PV == nil || *rec.PV != MockPV {
		t.Errorf("PV = %+v, want %+v", rec.PV, MockPV)
	}
	if rec.Load == nil || *rec.Load != MockLoad {
		t.Errorf("Load = %+v, want %+v", rec.Load, MockLoad)
	}

	d.Disconnect(ctx)
	if d.IsConnected() {
		t.Error("IsConnected() after Disconnect() = true")
	}
}

func TestDevice_ConnectWhenConnectedIsNoop(t *testing.T) {
	drv := &fakeDriver{}
	d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)

	if !d.Connect(context.Background()) || !d.Connect(context.Background()) {
		t.Fatal("Connect() = false")
	}
	if drv.openCount() != 1 {
		t.Errorf("driver opens = %d, want 1", drv.openCount())
	}
}

func TestDevice_ConnectFailure(t *testing.T) {
	drv := &fakeDriver{openErr: errLink}
	d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)

	if d.Connect(context.Background()) {
		t.Fatal("Connect() = true, want false")
	}
	if d.IsConnected() {
		t.Error("failed Connect() left device connected")
	}
	if got := d.Status().Status; got != StatusDisconnected {
		t.Errorf("Status().Status = %q, want disconnected", got)
	}
}

func TestDevice_DisconnectIdempotent(t *testing.T) {
	drv := &fakeDriver{}
	d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)
	d.Connect(context.Background())

	d.Disconnect(context.Background())
	if d.IsConnected() {
		t.Error("first Disconnect() left device connected")
	}
	d.Disconnect(context.Background())
	if d.IsConnected() {
		t.Error("second Disconnect() left device connected")
	}
	if n := drv.sessions[0].closeCount(); n != 1 {
		t.Errorf("session closed %d times, want 1", n)
	}
}

func TestDevice_DisconnectSwallowsCloseError(t *testing.T) {
	drv := &fakeDriver{newSession: func(s *fakeSession) { s.closeErr = errLink }}
	d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)
	d.Connect(context.Background())

	d.Disconnect(context.Background())
	if d.IsConnected() {
		t.Error("Disconnect() with close error left device connected")
	}
}

func TestDevice_ReadDataDisconnected(t *testing.T) {
	drv := &fakeDriver{}
	d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)
	d.Connect(context.Background())
	d.Disconnect(context.Background())

	before := time.Now()
	rec := d.ReadData(context.Background())

	if rec.Status != StatusDisconnected {
		t.Errorf("Status = %q, want disconnected", rec.Status)
	}
	if rec.Error != "Device not connected" {
		t.Errorf("Error = %q", rec.Error)
	}
	if rec.Battery != nil || rec.PV != nil || rec.Load != nil {
		t.Error("disconnected record carries telemetry")
	}
	if rec.Timestamp.Before(before) {
		t.Error("Timestamp not set at read time")
	}
	if n := drv.sessions[0].callCount(); n != 0 {
		t.Errorf("session reads = %d, want 0", n)
	}
}

func TestDevice_ReadDataDomainFailure(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fakeSession)
		wantCalls int
	}{
		{name: "battery fails", setup: func(s *fakeSession) { s.batteryErr = errLink }, wantCalls: 1},
		{name: "pv fails", setup: func(s *fakeSession) { s.pvErr = errLink }, wantCalls: 2},
		{name: "load fails", setup: func(s *fakeSession) { s.loadErr = errLink }, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{newSession: tt.setup}
			d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)
			d.Connect(context.Background())

			rec := d.ReadData(context.Background())
			if rec.Status != StatusError {
				t.Fatalf("Status = %q, want error", rec.Status)
			}
			if rec.Error != errLink.Error() {
				t.Errorf("Error = %q, want %q", rec.Error, errLink.Error())
			}
			if rec.Battery != nil || rec.PV != nil || rec.Load != nil {
				t.Error("partial domains should be discarded on error")
			}
			if n := drv.sessions[0].callCount(); n != tt.wantCalls {
				t.Errorf("session reads = %d, want %d", n, tt.wantCalls)
			}
			if !d.IsConnected() {
				t.Error("read failure should not change connection state")
			}
		})
	}
}

func TestDevice_ReadDataAbsentDomain(t *testing.T) {
	drv := &fakeDriver{newSession: func(s *fakeSession) { s.pv = nil }}
	d := NewDevice("AA:BB:CC:DD:EE:FF", time.Second, drv)
	d.Connect(context.Background())

	rec := d.ReadData(context.Background())
	if rec.Status != StatusConnected {
		t.Fatalf("Status = %q, want connected", rec.Status)
	}
	if rec.PV != nil {
		t.Errorf("PV = %+v, want nil", rec.PV)
	}
	if rec.Battery == nil || rec.Load == nil {
		t.Error("battery and load should be populated")
	}
}

func TestDevice_Status(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:ff", 15*time.Second, NewMockDriver())
	d.Connect(context.Background())

	got := d.Status()
	want := DeviceStatus{Address: "AA:BB:CC:DD:EE:FF", Connected: true, Timeout: 15, Status: StatusConnected}
	if got != want {
		t.Errorf("Status() = %+v, want %+v", got, want)
	}
}
