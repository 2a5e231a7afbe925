// Package httputil backs node info boxes with an HTTP endpoint.
//
// A [Source] turns a URL template into a session.InfoBoxProvider:
//
//	src := httputil.NewSource("https://kb.example.com/nodes/{key}?score={score}",
//	    httputil.WithCache(fc, time.Hour))
//	providers := map[string]session.InfoBoxProvider{"person": src.Provider()}
//
// The endpoint answers with a JSON object carrying any of preHeader, header,
// content and footer. Responses are cached by URL in a [cache.Cache]. Network
// errors, 429 and 5xx responses are retried with exponential backoff through
// [Retry]; other statuses fail at once and the session falls back to the node
// label.
package httputil
