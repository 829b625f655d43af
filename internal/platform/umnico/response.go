package umnico

import (
	"encoding/json"
	"errors"
)

// Response is a normalized remote response. Data holds the decoded JSON body,
// or the raw text when the body is not JSON.
type Response struct {
	StatusCode int
	OK         bool
	Data       interface{}
	Body       []byte
}

// Wrap never fails; an undecodable body degrades to its text.
func Wrap(statusCode int, body []byte) *Response {
	resp := &Response{
		StatusCode: statusCode,
		OK:         statusCode >= 200 && statusCode < 300,
		Body:       body,
	}

	var data interface{}
	if len(body) > 0 && json.Unmarshal(body, &data) == nil {
		resp.Data = data
	} else {
		resp.Data = string(body)
	}

	return resp
}

func (r *Response) IsSuccess() bool {
	return r != nil && r.OK
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v interface{}) error {
	if r == nil || len(r.Body) == 0 {
		return errors.New("umnico: empty response body")
	}
	return json.Unmarshal(r.Body, v)
}
