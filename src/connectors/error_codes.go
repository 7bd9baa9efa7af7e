package connectors

import "fmt"

// MudrexStatusMessages maps HTTP statuses returned by Mudrex to readable hints.
var MudrexStatusMessages = map[int]string{
	400: "Bad request",                                  // Malformed body or query
	401: "Invalid API secret",                           // Secret missing, revoked or mistyped
	403: "API key lacks futures trading permission",     // Key created without trade scope
	404: "Not found",                                    // Unknown asset or position
	405: "API key is not allowed to call this endpoint", // Endpoint disabled for this key
	408: "Request timeout",                              // Upstream timed out
	429: "Rate limited by Mudrex",                       // Too many requests
	500: "Mudrex internal error",                        // Retry later
	502: "Mudrex gateway error",                         // Retry later
	503: "Mudrex unavailable",                           // Maintenance
}

// GetErrorMsg returns the hint for an HTTP status.
func GetErrorMsg(status int) string {
	if msg, ok := MudrexStatusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Unexpected HTTP status %d", status)
}
