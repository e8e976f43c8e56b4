package deviceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/metrics"
	"github.com/muurk/hisense/internal/protocol"
	"github.com/muurk/hisense/internal/urls"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second
)

// Identity names one appliance in the vendor cloud
type Identity struct {
	WifiID   string `json:"wifi_id" yaml:"wifi_id"`
	DeviceID string `json:"device_id" yaml:"device_id"`
}

// Authenticator supplies access tokens and renews them on demand.
// *session.Session implements it.
type Authenticator interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Client controls one air conditioner through the command host
type Client struct {
	// BaseURL is the command host base (default urls.CommandBaseURL)
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	identity Identity
	auth     Authenticator

	snapshot    atomic.Pointer[protocol.Status]
	lastOutcome atomic.Pointer[Outcome]

	now func() time.Time
}

// New creates a client for one device. The snapshot starts as
// protocol.DefaultStatus.
func New(identity Identity, auth Authenticator) *Client {
	c := &Client{
		BaseURL:    urls.CommandBaseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		identity:   identity,
		auth:       auth,
		now:        time.Now,
	}
	initial := protocol.DefaultStatus()
	c.snapshot.Store(&initial)
	return c
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Identity returns the device identity
func (c *Client) Identity() Identity {
	return c.identity
}

// Authenticator returns the credential source shared with other clients
func (c *Client) Authenticator() Authenticator {
	return c.auth
}

// Status returns the latest snapshot. It performs no I/O.
func (c *Client) Status() protocol.Status {
	return *c.snapshot.Load()
}

// LastOutcome returns the trace of the most recent operation, if any
func (c *Client) LastOutcome() (Outcome, bool) {
	if o := c.lastOutcome.Load(); o != nil {
		return *o, true
	}
	return Outcome{}, false
}

// PowerOn turns the appliance on.
// The snapshot reports power on immediately and is not reverted on failure.
func (c *Client) PowerOn(ctx context.Context) error {
	return c.setPower(ctx, true)
}

// PowerOff turns the appliance off.
// The snapshot reports power off immediately and is not reverted on failure.
func (c *Client) PowerOff(ctx context.Context) error {
	return c.setPower(ctx, false)
}

func (c *Client) setPower(ctx context.Context, on bool) error {
	c.swapPower(on)

	command := "power_off"
	if on {
		command = "power_on"
	}
	req := protocol.BuildPowerRequest(c.identity.WifiID, c.identity.DeviceID, on)
	return c.run(ctx, command, protocol.PathPowerCommand, req)
}

// SendLogicCommand sends a single logic command such as a mode or temperature change
func (c *Client) SendLogicCommand(ctx context.Context, cmdID, param int) error {
	req := protocol.BuildLogicRequest(c.identity.WifiID, c.identity.DeviceID, cmdID, param)
	return c.run(ctx, protocol.CommandName(cmdID), protocol.PathLogicCommand, req)
}

// CheckStatus polls the appliance and replaces the snapshot with its reply
func (c *Client) CheckStatus(ctx context.Context) error {
	req := protocol.BuildStatusRequest(c.identity.WifiID, c.identity.DeviceID)
	return c.run(ctx, "check_status", protocol.PathStatusPoll, req)
}

// swapPower replaces the snapshot with a copy that has PowerOn set
func (c *Client) swapPower(on bool) {
	for {
		current := c.snapshot.Load()
		next := current.WithPower(on)
		if c.snapshot.CompareAndSwap(current, &next) {
			return
		}
	}
}

func (c *Client) run(ctx context.Context, command, path string, payload any) error {
	outcome, err := c.send(ctx, command, path, payload)
	c.lastOutcome.Store(&outcome)

	logging.LogCommand(c.identity.DeviceID, command, outcome.StateNames(), err)
	metrics.ObserveCommand(c.identity.DeviceID, command, outcome.Final().String(), outcome.Retried())
	if err == nil {
		metrics.ObserveStatus(c.identity.DeviceID, c.Status())
	}
	return err
}

// send runs one request through the re-authentication state machine:
//
//	building -> sent -> succeeded
//	                 -> transport_failed
//	                 -> auth_rejected -> refreshing -> refresh_failed
//	                                                -> sent -> retried_succeeded
//	                                                        -> retried_failed
//
// A successful reply that cannot be decoded ends in decode_failed. The
// machine refreshes at most once and resends at most once.
func (c *Client) send(ctx context.Context, command, path string, payload any) (Outcome, error) {
	outcome := Outcome{Command: command}
	outcome.record(StateBuilding)

	body, err := json.Marshal(payload)
	if err != nil {
		outcome.record(StateTransportFailed)
		return outcome, protocol.NewTransportError("failed to encode request", path, err)
	}

	outcome.record(StateSent)
	resp, err := c.post(ctx, path, body, outcome.Attempts)
	if err != nil {
		outcome.record(StateTransportFailed)
		return outcome, err
	}
	if resp.Succeeded() {
		return c.publish(outcome, resp, StateSucceeded)
	}

	rejection := protocol.NewRejectedError(resp.Code(), path)
	outcome.record(StateAuthRejected)
	outcome.record(StateRefreshing)
	if err := c.auth.Refresh(ctx); err != nil {
		rejection.Err = err
		outcome.record(StateRefreshFailed)
		return outcome, rejection
	}

	outcome.record(StateSent)
	resp, err = c.post(ctx, path, body, outcome.Attempts)
	if err != nil {
		outcome.record(StateRetriedFailed)
		return outcome, err
	}
	if !resp.Succeeded() {
		outcome.record(StateRetriedFailed)
		return outcome, protocol.NewRejectedError(resp.Code(), path)
	}
	return c.publish(outcome, resp, StateRetriedSucceeded)
}

// publish decodes the status of an accepted reply and swaps it in.
// The snapshot is untouched when decoding fails.
func (c *Client) publish(outcome Outcome, resp *protocol.Response, final State) (Outcome, error) {
	status, err := resp.DecodeStatus()
	if err != nil {
		outcome.record(StateDecodeFailed)
		return outcome, err
	}
	status.UpdatedAt = c.now()
	c.snapshot.Store(&status)
	outcome.record(final)
	return outcome, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, attempt int) (*protocol.Response, error) {
	endpoint := protocol.Endpoint(c.BaseURL, path, c.auth.AccessToken())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, protocol.NewTransportError("failed to create request", path, err)
	}
	protocol.ApplyCommandHeaders(req)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	logging.LogCloudRequest(http.MethodPost, endpoint, c.identity.DeviceID, attempt)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		// The url.Error text carries the request URL and with it the token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = logging.RedactURL(urlErr.URL)
		}
		return nil, protocol.NewTransportError("cloud request failed", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := protocol.ReadBody(resp)
	if err != nil {
		return nil, protocol.NewTransportError("failed to read response body", path, err)
	}
	logging.LogRawBody("Cloud response body", data)

	envelope, err := protocol.ParseEnvelope(data)
	if err != nil {
		var pe *protocol.Error
		if errors.As(err, &pe) {
			pe.StatusCode = resp.StatusCode
			pe.Endpoint = path
		}
		logging.LogCloudResponse(endpoint, resp.StatusCode, -1, time.Since(start))
		return nil, err
	}

	logging.LogCloudResponse(endpoint, resp.StatusCode, envelope.Code(), time.Since(start))
	return envelope, nil
}
