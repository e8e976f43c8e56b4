// Package protocol implements the wire format of the Hisense smart home cloud
// used to control air conditioners.
//
// The cloud exposes three JSON endpoints for device control and one form
// endpoint for credential refresh. This package builds the request bodies,
// reproduces the mobile client's fixed HTTP headers, decodes the shared
// response envelope and turns the positional status array into a Status.
//
// # Request Kinds
//
// Three request shapes are sent to the command host:
//   - PowerRequest: sendDeviceModelCmd, attributes {"onAndOff":"On"|"Off"}
//   - LogicRequest: uploadRemoteLogicCmd, a single-entry cmdList
//   - StatusRequest: getDeviceLogicalStatusArray, the device identity only
//
// Each kind carries a fixed cmdVersion constant.
//
// # Response Envelope
//
// Every command response has the form:
//
//	{"response": {"resultCode": 0, "preStatus": "...", "deviceStatusList": [{"deviceStatus": "..."}]}}
//
// A resultCode of 0 denotes success. Command responses carry the status array
// under preStatus, poll responses under deviceStatusList[0].deviceStatus.
//
// # Status Array
//
// The status payload is a comma separated list of integers. Only a handful of
// positions are understood (see the Index constants). ParseStatusArray parses
// every token, requires the array to reach IndexSwingMode, and rejects enum
// ids outside their lookup tables.
//
// # Usage Example
//
//	req := protocol.BuildLogicRequest(wifiID, deviceID, protocol.CmdTargetTemperature, 24)
//	body, _ := json.Marshal(req)
//	// POST body to protocol.Endpoint(baseURL, protocol.PathLogicCommand, token)
//
//	resp, err := protocol.ParseEnvelope(respBody)
//	if err != nil {
//	    return err // malformed body, treat as transport failure
//	}
//	if resp.Succeeded() {
//	    status, err := resp.DecodeStatus()
//	    ...
//	}
//
// # Error Handling
//
// All failures are reported as *Error values whose Type places them in one of
// the transport, auth, rejection, decode or validation classes. Use the
// IsTransportError, IsAuthError, IsRejection and IsDecodeError predicates
// rather than inspecting messages.
//
// # Thread Safety
//
// All functions in this package are stateless and safe for concurrent use.
package protocol
