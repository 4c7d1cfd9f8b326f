// Package clientip extracts the originating client address from an
// *http.Request behind one or more reverse proxies.
//
// Resolution checks CF-Connecting-IP, True-Client-IP and X-Real-IP, then
// the first valid entry of X-Forwarded-For, and finally falls back to the
// TCP peer address. Every candidate is validated with net.ParseIP, so
// header injection of garbage never propagates.
//
// GetIP never returns an error; an empty string means nothing parsed as an
// address. The Middleware stores the resolved IP in the request context for
// downstream consumers such as per-IP rate limiting.
package clientip
