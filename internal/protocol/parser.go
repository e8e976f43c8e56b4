package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Envelope is the outer object of every command host response
type Envelope struct {
	Response *Response `json:"response"`
}

// Response is the body of the envelope.
// ResultCode is a pointer so a missing field can be told apart from 0.
type Response struct {
	ResultCode       *int           `json:"resultCode"`
	PreStatus        *string        `json:"preStatus,omitempty"`
	DeviceStatusList []DeviceStatus `json:"deviceStatusList,omitempty"`
}

// DeviceStatus is one entry of a poll response's deviceStatusList
type DeviceStatus struct {
	WifiID       string  `json:"wifiId,omitempty"`
	DeviceID     string  `json:"deviceId,omitempty"`
	DeviceStatus *string `json:"deviceStatus"`
}

// ParseEnvelope decodes a command host response body.
// A body that is not JSON, lacks "response" or lacks "resultCode" is malformed.
func ParseEnvelope(body []byte) (*Response, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewMalformedError("response is not a JSON envelope", err)
	}
	if env.Response == nil {
		return nil, NewMalformedError("response envelope missing \"response\"", nil)
	}
	if env.Response.ResultCode == nil {
		return nil, NewMalformedError("response envelope missing \"resultCode\"", nil)
	}
	return env.Response, nil
}

// Succeeded reports whether the cloud accepted the request
func (r *Response) Succeeded() bool {
	return r.ResultCode != nil && *r.ResultCode == 0
}

// Code returns the result code, or -1 when absent
func (r *Response) Code() int {
	if r.ResultCode == nil {
		return -1
	}
	return *r.ResultCode
}

// StatusPayload returns the raw status array string.
// preStatus is preferred; deviceStatusList[0].deviceStatus is the fallback.
func (r *Response) StatusPayload() (string, error) {
	if r.PreStatus != nil {
		return *r.PreStatus, nil
	}
	if len(r.DeviceStatusList) > 0 && r.DeviceStatusList[0].DeviceStatus != nil {
		return *r.DeviceStatusList[0].DeviceStatus, nil
	}
	return "", NewDecodeError("response carries neither preStatus nor deviceStatusList", nil)
}

// DecodeStatus extracts and parses the status array of a successful response
func (r *Response) DecodeStatus() (Status, error) {
	payload, err := r.StatusPayload()
	if err != nil {
		return Status{}, err
	}
	return ParseStatusArray(payload)
}

// ParseStatusArray decodes a comma separated status array.
//
// Every token must be an integer and the array must reach IndexSwingMode.
// Mode ids outside their lookup tables are rejected. On error the returned
// Status is the zero value and must not be published. UpdatedAt is left for
// the publisher to stamp.
func ParseStatusArray(payload string) (Status, error) {
	tokens := strings.Split(payload, ",")
	values := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return Status{}, NewDecodeError(fmt.Sprintf("status value %d is not an integer: %q", i, tok), err)
		}
		values[i] = v
	}

	if len(values) < MinStatusLength {
		return Status{}, NewDecodeError(fmt.Sprintf("status array has %d values, need at least %d", len(values), MinStatusLength), nil)
	}

	status := Status{
		Reported:           true,
		PowerOn:            values[IndexPower] == 1,
		FanModeID:          FanMode(values[IndexFanMode]),
		HVACModeID:         HVACMode(values[IndexHVACMode]),
		DesiredTemperature: values[IndexDesiredTemperature],
		IndoorTemperature:  values[IndexIndoorTemperature],
		NatureWind:         values[IndexNatureWind] == 1,
		AuxHeat:            values[IndexAuxHeat] == 1,
		ScreenOn:           values[IndexScreen] == 1,
		SwingModeID:        SwingMode(values[IndexSwingMode]),
	}

	if !status.FanModeID.Valid() {
		return Status{}, NewDecodeError(fmt.Sprintf("fan mode id %d out of range", values[IndexFanMode]), nil)
	}
	if !status.HVACModeID.Valid() {
		return Status{}, NewDecodeError(fmt.Sprintf("hvac mode id %d out of range", values[IndexHVACMode]), nil)
	}
	if !status.SwingModeID.Valid() {
		return Status{}, NewDecodeError(fmt.Sprintf("swing mode id %d out of range", values[IndexSwingMode]), nil)
	}

	return status, nil
}

// RefreshResponseEntry is one element of the refresh_token2 response array
type RefreshResponseEntry struct {
	Token string `json:"token"`
}

// ParseRefreshResponse extracts the new access token from a refresh response.
// The body must be a non-empty JSON array whose first element has a non-empty token.
func ParseRefreshResponse(body []byte) (string, error) {
	var entries []RefreshResponseEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", NewAuthError("refresh response is not a JSON array", err)
	}
	if len(entries) == 0 {
		return "", NewAuthError("refresh response array is empty", nil)
	}
	if entries[0].Token == "" {
		return "", NewAuthError("refresh response missing token", nil)
	}
	return entries[0].Token, nil
}
