package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantNil     bool
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
	}{
		{name: "nil", err: nil, wantNil: true},
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name:        "wrapped os deadline",
			err:         fmt.Errorf("read: %w", os.ErrDeadlineExceeded),
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name:        "dns",
			err:         &net.DNSError{Err: "no such host", Name: "api-wg.hismarttv.com"},
			wantType:    ErrTypeDNS,
			wantSubtype: NetworkErrorDNS,
		},
		{
			name:        "connection refused",
			err:         &net.OpError{Op: "dial", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}},
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
		},
		{
			name:        "canceled",
			err:         fmt.Errorf("do: %w", context.Canceled),
			wantType:    ErrTypeTransport,
			wantSubtype: NetworkErrorCanceled,
		},
		{
			name:        "generic",
			err:         errors.New("connection reset"),
			wantType:    ErrTypeTransport,
			wantSubtype: NetworkErrorGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "https://example")
			if tt.wantNil {
				if got != nil {
					t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", got.NetworkSubtype, tt.wantSubtype)
			}
			if !IsTransportError(got) {
				t.Error("IsTransportError() = false, want true")
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	authErr := NewAuthError("refresh failed", errors.New("status 401"))
	rejected := NewRejectedError(100026, "https://example/sendDeviceModelCmd")
	rejected.Err = authErr

	if !IsRejection(rejected) {
		t.Error("IsRejection(rejected) = false, want true")
	}
	if IsAuthError(rejected) {
		t.Error("IsAuthError(rejected) = true, want false")
	}
	if IsTransportError(rejected) {
		t.Error("IsTransportError(rejected) = true, want false")
	}

	var cause *Error
	if !errors.As(errors.Unwrap(rejected), &cause) || cause.Type != ErrTypeAuth {
		t.Errorf("rejection cause = %v, want auth error", cause)
	}

	code, ok := ResultCode(fmt.Errorf("power on: %w", rejected))
	if !ok || code != 100026 {
		t.Errorf("ResultCode() = %d, %v, want 100026, true", code, ok)
	}
	if _, ok := ResultCode(authErr); ok {
		t.Error("ResultCode(authErr) ok = true, want false")
	}

	if !IsMalformed(NewMalformedError("bad", nil)) {
		t.Error("IsMalformed() = false, want true")
	}
	if IsDecodeError(errors.New("plain")) {
		t.Error("IsDecodeError(plain) = true, want false")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewDecodeError("status array too short", errors.New("len 3"))
	if err.Error() == "" {
		t.Fatal("Error() is empty")
	}
	if !errors.Is(err, err.Err) {
		t.Error("Unwrap() does not expose the cause")
	}
	if len(TroubleshootingHints(err)) == 0 {
		t.Error("TroubleshootingHints() is empty")
	}
	if ShortMessage(err) == "" {
		t.Error("ShortMessage() is empty")
	}
}
