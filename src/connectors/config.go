package connectors

import "time"

// Config holds the transport settings of the Mudrex connector.
type Config struct {
	MudrexBaseURL    string
	MudrexRetryCount int
	MudrexTimeout    time.Duration
}

// NewMudrexFromConfig builds a connector with the configured transport settings.
func NewMudrexFromConfig(apiSecret string, cfg Config, opts ...Option) *MudrexConnector {
	opts = append([]Option{
		WithRetryCount(cfg.MudrexRetryCount),
		WithTimeout(cfg.MudrexTimeout),
	}, opts...)
	return NewMudrexConnector(apiSecret, cfg.MudrexBaseURL, opts...)
}
