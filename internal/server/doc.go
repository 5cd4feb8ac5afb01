// Package server hosts the Fiber HTTP surface: one wildcard route per
// registered release provider, the cache/latest sub-endpoints, and the
// health/index pages. It owns the request middleware chain (panic recovery,
// request IDs) and the shared upstream http.Client, and translates
// coordinator states into HTTP responses. Keep exports narrow and accept
// explicit dependencies so tests can inject fakes.
package server
