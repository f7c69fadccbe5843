package sls

import (
	aliyun "github.com/aliyun/aliyun-log-go-sdk"

	"github.com/termfx/aliyun-mcp/internal/config"
)

// aliyunBackend adapts the official SLS SDK client to Backend.
type aliyunBackend struct {
	client aliyun.ClientInterface
}

// NewAliyunBackend creates an SDK client for the credentials' endpoint. The
// SDK pins its own API version header, so creds.APIVersion is informational.
func NewAliyunBackend(creds config.Credentials) (Backend, error) {
	client := aliyun.CreateNormalInterface(
		creds.Endpoint,
		creds.AccessKeyID,
		creds.AccessKeySecret,
		creds.SecurityToken,
	)
	return &aliyunBackend{client: client}, nil
}

// GetLogs runs one GetLogs call against the configured logstore.
func (b *aliyunBackend) GetLogs(req GetLogsRequest) (any, error) {
	resp, err := b.client.GetLogs(
		req.Project,
		req.Logstore,
		"",
		req.From,
		req.To,
		req.Query,
		req.Line,
		req.Offset,
		req.Reverse,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
