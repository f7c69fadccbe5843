package sls

import "time"

// Defaults applied when a query leaves a field unset.
const (
	DefaultWindow = time.Hour
	DefaultLimit  = 100
	DefaultOffset = 0
)

// QueryParams are the public parameters of a log query. Nil pointers mean the
// caller did not supply the field. From and To are milliseconds since epoch.
type QueryParams struct {
	Project  string `json:"project"`
	Logstore string `json:"logstore"`
	Query    string `json:"query"`
	From     *int64 `json:"from,omitempty"`
	To       *int64 `json:"to,omitempty"`
	Limit    *int64 `json:"limit,omitempty"`
	Offset   *int64 `json:"offset,omitempty"`
	Reverse  *bool  `json:"reverse,omitempty"`
}

// BuildRequest translates params into the backend shape, filling defaults
// relative to now.
func BuildRequest(params QueryParams, now time.Time) GetLogsRequest {
	nowSec := now.Unix()

	req := GetLogsRequest{
		Project:  params.Project,
		Logstore: params.Logstore,
		From:     nowSec - int64(DefaultWindow/time.Second),
		To:       nowSec,
		Query:    params.Query,
		Line:     DefaultLimit,
		Offset:   DefaultOffset,
	}

	if params.From != nil {
		req.From = floorDiv(*params.From, 1000)
	}
	if params.To != nil {
		req.To = floorDiv(*params.To, 1000)
	}
	if params.Limit != nil {
		req.Line = *params.Limit
	}
	if params.Offset != nil {
		req.Offset = *params.Offset
	}
	if params.Reverse != nil {
		req.Reverse = *params.Reverse
	}

	return req
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
