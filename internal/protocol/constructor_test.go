package protocol

import (
	"encoding/json"
	"testing"
)

func TestBuildPowerRequest(t *testing.T) {
	tests := []struct {
		name      string
		on        bool
		wantAttrs string
	}{
		{name: "on", on: true, wantAttrs: `{"onAndOff":"On"}`},
		{name: "off", on: false, wantAttrs: `{"onAndOff":"Off"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(BuildPowerRequest("wifi-1", "dev-1", tt.on))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			want := map[string]string{
				"wifiId":      "wifi-1",
				"deviceId":    "dev-1",
				"extendParam": "1",
				"cmdVersion":  "0",
				"attributes":  tt.wantAttrs,
			}
			for k, v := range want {
				if got[k] != v {
					t.Errorf("%s = %v, want %q", k, got[k], v)
				}
			}
			if _, ok := got["extendParm"]; ok {
				t.Error("power body must not carry extendParm")
			}
		})
	}
}

func TestBuildLogicRequest(t *testing.T) {
	data, err := json.Marshal(BuildLogicRequest("wifi-1", "dev-1", CmdTargetTemperature, 22))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got struct {
		WifiID     string `json:"wifiId"`
		DeviceID   string `json:"deviceId"`
		ExtendParm string `json:"extendParm"`
		CmdVersion string `json:"cmdVersion"`
		CmdList    []struct {
			CmdID     *int `json:"cmdId"`
			CmdOrder  *int `json:"cmdOrder"`
			CmdParm   *int `json:"cmdParm"`
			DelayTime *int `json:"delayTime"`
		} `json:"cmdList"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.WifiID != "wifi-1" || got.DeviceID != "dev-1" {
		t.Errorf("ids = %q/%q, want wifi-1/dev-1", got.WifiID, got.DeviceID)
	}
	if got.ExtendParm != "1" {
		t.Errorf("extendParm = %q, want \"1\"", got.ExtendParm)
	}
	if got.CmdVersion != "1684085201" {
		t.Errorf("cmdVersion = %q, want 1684085201", got.CmdVersion)
	}
	if len(got.CmdList) != 1 {
		t.Fatalf("len(cmdList) = %d, want 1", len(got.CmdList))
	}

	cmd := got.CmdList[0]
	if cmd.CmdID == nil || *cmd.CmdID != 6 {
		t.Errorf("cmdId = %v, want 6", cmd.CmdID)
	}
	if cmd.CmdParm == nil || *cmd.CmdParm != 22 {
		t.Errorf("cmdParm = %v, want 22", cmd.CmdParm)
	}
	if cmd.CmdOrder == nil || *cmd.CmdOrder != 0 {
		t.Errorf("cmdOrder = %v, want 0", cmd.CmdOrder)
	}
	if cmd.DelayTime == nil || *cmd.DelayTime != 0 {
		t.Errorf("delayTime = %v, want 0", cmd.DelayTime)
	}
}

func TestBuildStatusRequest(t *testing.T) {
	data, err := json.Marshal(BuildStatusRequest("wifi-1", "dev-1"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"deviceList":[{"wifiId":"wifi-1","deviceId":"dev-1"}]}`
	if string(data) != want {
		t.Errorf("body = %s, want %s", data, want)
	}
}

func TestValidateLogicCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmdID   int
		param   int
		wantErr bool
	}{
		{"fan high", CmdFanMode, int(FanHigh), false},
		{"fan out of range", CmdFanMode, 5, true},
		{"hvac auto", CmdHVACMode, int(HVACAuto), false},
		{"hvac negative", CmdHVACMode, -1, true},
		{"swing vertical", CmdSwingMode, int(SwingVertical), false},
		{"swing out of range", CmdSwingMode, 4, true},
		{"screen on", CmdScreen, 1, false},
		{"screen bad", CmdScreen, 2, true},
		{"aux heat off", CmdAuxHeat, 0, false},
		{"temperature unchecked", CmdTargetTemperature, 99, false},
		{"unknown command unchecked", 777, -3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLogicCommand(tt.cmdID, tt.param)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLogicCommand(%d, %d) error = %v, wantErr %v", tt.cmdID, tt.param, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

func TestCommandName(t *testing.T) {
	if got := CommandName(CmdSwingMode); got != "swing_mode" {
		t.Errorf("CommandName(62) = %q, want swing_mode", got)
	}
	if got := CommandName(99); got != "cmd_99" {
		t.Errorf("CommandName(99) = %q, want cmd_99", got)
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		token string
		want  string
	}{
		{"plain", "https://h/agw", "abc", "https://h/agw/sendDeviceModelCmd?accessToken=abc"},
		{"trailing slash", "https://h/agw/", "abc", "https://h/agw/sendDeviceModelCmd?accessToken=abc"},
		{"escaped", "https://h", "a+b/c=", "https://h/sendDeviceModelCmd?accessToken=a%2Bb%2Fc%3D"},
		{"empty token", "https://h", "", "https://h/sendDeviceModelCmd?accessToken="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Endpoint(tt.base, PathPowerCommand, tt.token); got != tt.want {
				t.Errorf("Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}
