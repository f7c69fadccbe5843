package config

import (
	"errors"
	"log/slog"
	"os"
)

// Credential environment variables and their defaults.
const (
	EnvAccessKeyID     = "ALIYUN_ACCESS_KEY_ID"
	EnvAccessKeySecret = "ALIYUN_ACCESS_KEY_SECRET"
	EnvSecurityToken   = "ALIYUN_SECURITY_TOKEN"
	EnvEndpoint        = "SLS_ENDPOINT"
	EnvAPIVersion      = "SLS_API_VERSION"

	DefaultEndpoint   = "cn-hangzhou.log.aliyuncs.com"
	DefaultAPIVersion = "2015-06-01"
)

// ErrMissingCredentials is returned when the access key id or secret is unset.
var ErrMissingCredentials = errors.New("missing Aliyun credentials. Please set ALIYUN_ACCESS_KEY_ID and ALIYUN_ACCESS_KEY_SECRET environment variables")

// Credentials is a read-only snapshot of the SLS credentials in the
// environment.
type Credentials struct {
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Endpoint        string
	APIVersion      string
}

// LoadCredentials reads credentials from the process environment.
func LoadCredentials() (Credentials, error) {
	return LoadCredentialsFrom(os.Getenv)
}

// LoadCredentialsFrom reads credentials through the supplied lookup.
func LoadCredentialsFrom(getenv func(string) string) (Credentials, error) {
	creds := Credentials{
		AccessKeyID:     getenv(EnvAccessKeyID),
		AccessKeySecret: getenv(EnvAccessKeySecret),
		SecurityToken:   getenv(EnvSecurityToken),
		Endpoint:        getenv(EnvEndpoint),
		APIVersion:      getenv(EnvAPIVersion),
	}

	if creds.AccessKeyID == "" || creds.AccessKeySecret == "" {
		return Credentials{}, ErrMissingCredentials
	}
	if creds.Endpoint == "" {
		creds.Endpoint = DefaultEndpoint
	}
	if creds.APIVersion == "" {
		creds.APIVersion = DefaultAPIVersion
	}

	return creds, nil
}

// KeyPrefix returns the first three characters of an access key id followed
// by an ellipsis. Ids of three characters or fewer are hidden entirely.
func KeyPrefix(id string) string {
	if len(id) <= 3 {
		return "..."
	}
	return id[:3] + "..."
}

// LogValue keeps secrets out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key_id", KeyPrefix(c.AccessKeyID)),
		slog.Bool("security_token", c.SecurityToken != ""),
		slog.String("endpoint", c.Endpoint),
		slog.String("api_version", c.APIVersion),
	)
}
