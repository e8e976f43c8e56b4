package protocol

import "fmt"

// Fixed version fields per request kind
const (
	PowerCmdVersion = "0"
	LogicCmdVersion = "1684085201"

	extendParamValue = "1"
)

// Logic command ids
const (
	CmdFanMode           = 1  // param: FanMode 0-4
	CmdHVACMode          = 3  // param: HVACMode 0-4
	CmdTargetTemperature = 6  // param: whole degrees Celsius
	CmdAuxHeat           = 28 // param: 0/1
	CmdScreen            = 41 // param: 0/1
	CmdSwingMode         = 62 // param: SwingMode 0-3
)

// Power attribute payloads, sent as a JSON string inside the JSON body
const (
	attributesOn  = `{"onAndOff":"On"}`
	attributesOff = `{"onAndOff":"Off"}`
)

// PowerRequest is the body of sendDeviceModelCmd
type PowerRequest struct {
	WifiID      string `json:"wifiId"`
	DeviceID    string `json:"deviceId"`
	ExtendParam string `json:"extendParam"`
	CmdVersion  string `json:"cmdVersion"`
	Attributes  string `json:"attributes"`
}

// LogicRequest is the body of uploadRemoteLogicCmd.
// Note the vendor spelling of extendParm, distinct from PowerRequest.
type LogicRequest struct {
	WifiID     string         `json:"wifiId"`
	DeviceID   string         `json:"deviceId"`
	ExtendParm string         `json:"extendParm"`
	CmdVersion string         `json:"cmdVersion"`
	CmdList    []LogicCommand `json:"cmdList"`
}

// LogicCommand is one entry of a logic request's cmdList
type LogicCommand struct {
	CmdID     int `json:"cmdId"`
	CmdOrder  int `json:"cmdOrder"`
	CmdParm   int `json:"cmdParm"`
	DelayTime int `json:"delayTime"`
}

// StatusRequest is the body of getDeviceLogicalStatusArray
type StatusRequest struct {
	DeviceList []DeviceRef `json:"deviceList"`
}

// DeviceRef identifies one appliance in a status poll
type DeviceRef struct {
	WifiID   string `json:"wifiId"`
	DeviceID string `json:"deviceId"`
}

// BuildPowerRequest builds a power toggle request
func BuildPowerRequest(wifiID, deviceID string, on bool) *PowerRequest {
	attrs := attributesOff
	if on {
		attrs = attributesOn
	}
	return &PowerRequest{
		WifiID:      wifiID,
		DeviceID:    deviceID,
		ExtendParam: extendParamValue,
		CmdVersion:  PowerCmdVersion,
		Attributes:  attrs,
	}
}

// BuildLogicRequest builds a single-entry logic command request
func BuildLogicRequest(wifiID, deviceID string, cmdID, param int) *LogicRequest {
	return &LogicRequest{
		WifiID:     wifiID,
		DeviceID:   deviceID,
		ExtendParm: extendParamValue,
		CmdVersion: LogicCmdVersion,
		CmdList: []LogicCommand{
			{CmdID: cmdID, CmdOrder: 0, CmdParm: param, DelayTime: 0},
		},
	}
}

// BuildStatusRequest builds a status poll for one device
func BuildStatusRequest(wifiID, deviceID string) *StatusRequest {
	return &StatusRequest{
		DeviceList: []DeviceRef{{WifiID: wifiID, DeviceID: deviceID}},
	}
}

// CommandName returns a readable name for a logic command id
func CommandName(cmdID int) string {
	switch cmdID {
	case CmdFanMode:
		return "fan_mode"
	case CmdHVACMode:
		return "hvac_mode"
	case CmdTargetTemperature:
		return "target_temperature"
	case CmdAuxHeat:
		return "aux_heat"
	case CmdScreen:
		return "screen"
	case CmdSwingMode:
		return "swing_mode"
	default:
		return fmt.Sprintf("cmd_%d", cmdID)
	}
}

// ValidateLogicCommand checks a parameter against the known range of a command.
// Unknown command ids are accepted unchecked.
func ValidateLogicCommand(cmdID, param int) error {
	switch cmdID {
	case CmdFanMode:
		if !FanMode(param).Valid() {
			return NewValidationError(fmt.Sprintf("fan mode must be 0-%d, got %d", len(fanModeNames)-1, param))
		}
	case CmdHVACMode:
		if !HVACMode(param).Valid() {
			return NewValidationError(fmt.Sprintf("hvac mode must be 0-%d, got %d", len(hvacModeNames)-1, param))
		}
	case CmdSwingMode:
		if !SwingMode(param).Valid() {
			return NewValidationError(fmt.Sprintf("swing mode must be 0-%d, got %d", len(swingModeNames)-1, param))
		}
	case CmdAuxHeat, CmdScreen:
		if param != 0 && param != 1 {
			return NewValidationError(fmt.Sprintf("%s must be 0 or 1, got %d", CommandName(cmdID), param))
		}
	}
	return nil
}
