package urls

// Hisense cloud hosts. The Host header sent with every request must match
// these names exactly.
const (
	// CommandHost serves device commands and status polls.
	CommandHost = "api-wg.hismarttv.com"

	// AuthHost serves access token refresh.
	AuthHost = "bas-wg.hismarttv.com"
)

// CommandBaseURL is the prefix shared by the three device control endpoints.
const CommandBaseURL = "https://" + CommandHost + "/agw/dsg/outer"

// RefreshTokenURL exchanges a refresh token for a new access token.
const RefreshTokenURL = "https://" + AuthHost + "/aaa/refresh_token2"
