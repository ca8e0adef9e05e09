// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every handler file should use these helpers instead of writing raw
// http.ResponseWriter calls, so JSON formatting, error envelopes, and
// logging stay consistent across endpoints.
package httputil
