// Package urls provides centralized constants for the Hisense cloud
// endpoints used throughout the application.
//
// Hosts and endpoint prefixes are defined here so they can be updated in a
// single location. Tests replace the cloud base URLs through the
// BaseURL and Endpoint fields of the clients, never by editing these values.
//
// Usage:
//
//	import "github.com/muurk/hisense/internal/urls"
//
//	client.BaseURL = urls.CommandBaseURL
package urls
