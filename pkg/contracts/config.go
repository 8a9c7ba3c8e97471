package contracts

import "time"

// Default values applied by ClusterConfig.WithDefaults.
const (
	DefaultAddress         = "http://localhost:9200"
	DefaultUserAgent       = "bamboo-go"
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultScrollKeepAlive = time.Minute
	DefaultScrollBatchSize = 1000
)

// ClusterConfig holds the settings used to reach a search cluster.
type ClusterConfig struct {
	// Addresses lists cluster node base URLs. Requests are retried across
	// nodes in order.
	Addresses []string `json:"addresses" mapstructure:"addresses"`

	// Username and Password enable HTTP basic auth when both are set.
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`

	// APIKey enables ApiKey authorization. Takes precedence over basic auth.
	APIKey string `json:"api_key,omitempty" mapstructure:"api_key"`

	// UserAgent overrides the User-Agent header sent with every request.
	UserAgent string `json:"user_agent,omitempty" mapstructure:"user_agent"`

	// InsecureSkipVerify disables TLS certificate checks. Meant for local
	// clusters with self-signed certificates.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" mapstructure:"insecure_skip_verify"`

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`

	// MaxRetries caps retry attempts for retryable responses (429, 5xx).
	MaxRetries int `json:"max_retries,omitempty" mapstructure:"max_retries"`

	// ScrollKeepAlive is the scroll context lifetime used by full scans.
	ScrollKeepAlive time.Duration `json:"scroll_keep_alive,omitempty" mapstructure:"scroll_keep_alive"`

	// ScrollBatchSize is the page size used by full scans.
	ScrollBatchSize int `json:"scroll_batch_size,omitempty" mapstructure:"scroll_batch_size"`
}

// WithDefaults returns a copy of the config with zero values replaced by
// the package defaults.
func (c ClusterConfig) WithDefaults() ClusterConfig {
	out := c
	if len(out.Addresses) == 0 {
		out.Addresses = []string{DefaultAddress}
	}
	if out.UserAgent == "" {
		out.UserAgent = DefaultUserAgent
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = DefaultMaxRetries
	}
	if out.ScrollKeepAlive <= 0 {
		out.ScrollKeepAlive = DefaultScrollKeepAlive
	}
	if out.ScrollBatchSize <= 0 {
		out.ScrollBatchSize = DefaultScrollBatchSize
	}
	return out
}
