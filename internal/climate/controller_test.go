package climate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/hisense/internal/protocol"
)

// fakeDevice records calls and serves a fixed snapshot
type fakeDevice struct {
	mu       sync.Mutex
	status   protocol.Status
	calls    []string
	err      error
	powerErr error // PowerOn only, overrides err
	polls    []protocol.Status
	pollErrs []error
}

func (f *fakeDevice) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeDevice) PowerOn(ctx context.Context) error {
	f.mu.Lock()
	f.status.PowerOn = true
	powerErr := f.powerErr
	f.mu.Unlock()
	if err := f.record("power_on"); err != nil {
		return err
	}
	return powerErr
}

func (f *fakeDevice) PowerOff(ctx context.Context) error {
	f.mu.Lock()
	f.status.PowerOn = false
	f.mu.Unlock()
	return f.record("power_off")
}

func (f *fakeDevice) SendLogicCommand(ctx context.Context, cmdID, param int) error {
	return f.record(fmt.Sprintf("cmd %d=%d", cmdID, param))
}

func (f *fakeDevice) CheckStatus(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "check_status")
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		if err != nil {
			return err
		}
	}
	if len(f.polls) > 0 {
		f.status = f.polls[0]
		f.polls = f.polls[1:]
	}
	return nil
}

func (f *fakeDevice) Status() protocol.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeDevice) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return nil
}

func running(mode protocol.HVACMode) protocol.Status {
	return protocol.Status{Reported: true, PowerOn: true, HVACModeID: mode, DesiredTemperature: 24}
}

func newTestController(status protocol.Status) (*Controller, *fakeDevice) {
	dev := &fakeDevice{status: status}
	c := NewController(dev, &fakeRefresher{})
	c.TurnOnDelay = 0
	return c, dev
}

func TestSetTemperature(t *testing.T) {
	tests := []struct {
		name      string
		status    protocol.Status
		unit      Unit
		value     float64
		wantErr   error
		wantValid bool
		wantCalls []string
	}{
		{
			name:      "celsius",
			status:    running(protocol.HVACCool),
			value:     22,
			wantCalls: []string{"cmd 6=22"},
		},
		{
			name:      "celsius rounds",
			status:    running(protocol.HVACCool),
			value:     21.6,
			wantCalls: []string{"cmd 6=22"},
		},
		{
			name:      "fahrenheit converts to celsius",
			status:    running(protocol.HVACHeat),
			unit:      Fahrenheit,
			value:     72,
			wantCalls: []string{"cmd 6=22"},
		},
		{
			name:    "powered off",
			status:  protocol.Status{Reported: true, HVACModeID: protocol.HVACCool},
			value:   22,
			wantErr: ErrPoweredOff,
		},
		{
			name:    "fan only",
			status:  running(protocol.HVACFanOnly),
			value:   22,
			wantErr: ErrFanOnlyMode,
		},
		{
			name:      "too cold",
			status:    running(protocol.HVACCool),
			value:     15,
			wantValid: true,
		},
		{
			name:      "too hot in fahrenheit",
			status:    running(protocol.HVACHeat),
			unit:      Fahrenheit,
			value:     95,
			wantValid: true,
		},
		{
			name:      "upper bound",
			status:    running(protocol.HVACHeat),
			value:     32,
			wantCalls: []string{"cmd 6=32"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestController(tt.status)
			if tt.unit != "" {
				c.Unit = tt.unit
			}

			err := c.SetTemperature(context.Background(), tt.value)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SetTemperature() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantValid:
				if !protocol.IsValidationError(err) {
					t.Errorf("SetTemperature() error = %v, want validation error", err)
				}
			case err != nil:
				t.Fatalf("SetTemperature() error = %v", err)
			}

			if got := dev.Calls(); strings.Join(got, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
		})
	}
}

func TestSetHVACMode(t *testing.T) {
	tests := []struct {
		name      string
		status    protocol.Status
		mode      string
		wantCalls []string
	}{
		{
			name:      "off",
			status:    running(protocol.HVACCool),
			mode:      "off",
			wantCalls: []string{"power_off"},
		},
		{
			name:      "running same mode",
			status:    running(protocol.HVACCool),
			mode:      "COOL",
			wantCalls: []string{"cmd 3=2"},
		},
		{
			name:      "running different mode",
			status:    running(protocol.HVACCool),
			mode:      "heat",
			wantCalls: []string{"cmd 3=1"},
		},
		{
			name:      "stopped same mode",
			status:    protocol.Status{Reported: true, HVACModeID: protocol.HVACDry},
			mode:      "dry",
			wantCalls: []string{"power_on"},
		},
		{
			name:      "stopped different mode",
			status:    protocol.Status{Reported: true, HVACModeID: protocol.HVACDry},
			mode:      "fan_only",
			wantCalls: []string{"power_on", "cmd 3=0"},
		},
		{
			name:      "stopped never reported",
			status:    protocol.DefaultStatus(),
			mode:      "fan_only",
			wantCalls: []string{"power_on", "cmd 3=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestController(tt.status)
			if err := c.SetHVACMode(context.Background(), tt.mode); err != nil {
				t.Fatalf("SetHVACMode() error = %v", err)
			}
			if got := dev.Calls(); strings.Join(got, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
		})
	}
}

func TestSetHVACMode_Unknown(t *testing.T) {
	c, dev := newTestController(running(protocol.HVACCool))
	if err := c.SetHVACMode(context.Background(), "turbo"); !protocol.IsValidationError(err) {
		t.Errorf("SetHVACMode(turbo) error = %v, want validation error", err)
	}
	if len(dev.Calls()) != 0 {
		t.Errorf("calls = %v, want none", dev.Calls())
	}
}

func TestSetHVACMode_DelayHonoursContext(t *testing.T) {
	c, dev := newTestController(protocol.Status{Reported: true, HVACModeID: protocol.HVACDry})
	c.TurnOnDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.SetHVACMode(ctx, "cool")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SetHVACMode() error = %v, want deadline exceeded", err)
	}
	if got := dev.Calls(); len(got) != 1 || got[0] != "power_on" {
		t.Errorf("calls = %v, want [power_on]", got)
	}
}

func TestSetHVACMode_PowerOnFails(t *testing.T) {
	c, dev := newTestController(protocol.Status{Reported: true, HVACModeID: protocol.HVACDry})
	dev.err = protocol.NewRejectedError(1, "/sendDeviceModelCmd")

	err := c.SetHVACMode(context.Background(), "cool")
	if !protocol.IsRejection(err) {
		t.Errorf("SetHVACMode() error = %v, want rejection", err)
	}
	if got := dev.Calls(); len(got) != 1 {
		t.Errorf("calls = %v, want only power_on", got)
	}
}

func TestSetHVACMode_PowerOnUndecodedReply(t *testing.T) {
	c, dev := newTestController(protocol.Status{Reported: true, HVACModeID: protocol.HVACDry})
	dev.powerErr = protocol.NewDecodeError("status array too short", nil)

	if err := c.SetHVACMode(context.Background(), "cool"); err != nil {
		t.Fatalf("SetHVACMode() error = %v, want nil", err)
	}
	if got := dev.Calls(); strings.Join(got, ",") != "power_on,cmd 3=2" {
		t.Errorf("calls = %v, want [power_on cmd 3=2]", got)
	}
}

func TestFanAndSwingNeedPower(t *testing.T) {
	c, dev := newTestController(protocol.Status{Reported: true})

	if err := c.SetFanMode(context.Background(), protocol.FanHigh); !errors.Is(err, ErrPoweredOff) {
		t.Errorf("SetFanMode() error = %v, want ErrPoweredOff", err)
	}
	if err := c.SetSwingMode(context.Background(), protocol.SwingOn); !errors.Is(err, ErrPoweredOff) {
		t.Errorf("SetSwingMode() error = %v, want ErrPoweredOff", err)
	}
	if len(dev.Calls()) != 0 {
		t.Errorf("calls = %v, want none", dev.Calls())
	}

	c, dev = newTestController(running(protocol.HVACCool))
	if err := c.SetFanMode(context.Background(), protocol.FanMedium); err != nil {
		t.Fatalf("SetFanMode() error = %v", err)
	}
	if err := c.SetSwingMode(context.Background(), protocol.SwingVertical); err != nil {
		t.Fatalf("SetSwingMode() error = %v", err)
	}
	if err := c.SetFanMode(context.Background(), protocol.FanMode(8)); !protocol.IsValidationError(err) {
		t.Errorf("SetFanMode(8) error = %v, want validation error", err)
	}
	want := "cmd 1=3,cmd 62=3"
	if got := strings.Join(dev.Calls(), ","); got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
}

func TestSwitchesAndButtons(t *testing.T) {
	c, dev := newTestController(protocol.DefaultStatus())
	auth := c.Auth.(*fakeRefresher)
	ctx := context.Background()

	for _, step := range []func() error{
		func() error { return c.SetScreen(ctx, false) },
		func() error { return c.SetScreen(ctx, true) },
		func() error { return c.SetAuxHeat(ctx, true) },
		func() error { return c.ForceUpdate(ctx) },
		func() error { return c.RefreshToken(ctx) },
	} {
		if err := step(); err != nil {
			t.Fatalf("step error = %v", err)
		}
	}

	want := "cmd 41=0,cmd 41=1,cmd 28=1,check_status"
	if got := strings.Join(dev.Calls(), ","); got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
	if auth.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", auth.calls)
	}

	c.Auth = nil
	if err := c.RefreshToken(ctx); !protocol.IsAuthError(err) {
		t.Errorf("RefreshToken() without session error = %v, want auth error", err)
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"": Celsius, "c": Celsius, "Fahrenheit": Fahrenheit, "F": Fahrenheit} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseUnit("K"); err == nil {
		t.Error("ParseUnit(K) error = nil")
	}
}
