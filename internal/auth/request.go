package auth

import (
	"net/http"
	"net/url"
)

// HeaderAuthorization is the request header carrying credentials.
const HeaderAuthorization = "Authorization"

// Request is the part of an inbound request adapters read credentials from.
type Request interface {
	// Header returns the first value of the named header or "".
	Header(name string) string
	// Query returns the first value of the named query parameter or "".
	Query(name string) string
}

// StaticRequest is a Request backed by plain header and query values.
type StaticRequest struct {
	Headers http.Header
	Params  url.Values
}

// Header implements Request.
func (r StaticRequest) Header(name string) string {
	return r.Headers.Get(name)
}

// Query implements Request.
func (r StaticRequest) Query(name string) string {
	return r.Params.Get(name)
}

// FromHTTP returns the Request view of r.
func FromHTTP(r *http.Request) Request {
	if r == nil {
		return StaticRequest{}
	}

	var params url.Values
	if r.URL != nil {
		params = r.URL.Query()
	}

	return StaticRequest{Headers: r.Header, Params: params}
}
