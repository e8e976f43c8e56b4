package protocol

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/muurk/hisense/internal/urls"
)

// Fixed header values of the vendor mobile app. The cloud refuses requests
// that do not carry them.
const (
	// UserAgent is the percent-encoded app name followed by the iOS network stack
	UserAgent      = "%E6%B5%B7%E4%BF%A1%E6%99%BA%E6%85%A7%E5%AE%B6/4 CFNetwork/1492.0.1 Darwin/23.3.0"
	AcceptLanguage = "zh-CN,zh-Hans;q=0.9"
	AcceptEncoding = "gzip, deflate, br"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Command host endpoint paths, relative to urls.CommandBaseURL
const (
	PathPowerCommand = "/sendDeviceModelCmd"
	PathLogicCommand = "/uploadRemoteLogicCmd"
	PathStatusPoll   = "/getDeviceLogicalStatusArray"
)

// ApplyCommandHeaders sets the headers required by the command host
func ApplyCommandHeaders(req *http.Request) {
	applyHeaders(req, urls.CommandHost, ContentTypeJSON)
}

// ApplyRefreshHeaders sets the headers required by the auth host
func ApplyRefreshHeaders(req *http.Request) {
	applyHeaders(req, urls.AuthHost, ContentTypeForm)
}

func applyHeaders(req *http.Request, host, contentType string) {
	req.Host = host
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", AcceptLanguage)
	req.Header.Set("Accept-Encoding", AcceptEncoding)
}

// Endpoint joins a command base URL and path and appends the access token query
// parameter. An absent token is sent as an empty value.
func Endpoint(baseURL, path, accessToken string) string {
	return strings.TrimRight(baseURL, "/") + path + "?accessToken=" + url.QueryEscape(accessToken)
}
