// Package coordinator decides, per repository key, whether to serve cached
// releases, kick off a background refresh, or report a remembered failure.
// It enforces the single-flight guarantee (at most one in-flight upstream
// fetch per key) through an atomic check-and-insert on a process-wide pending
// set, and serves stale data while a refresh runs. Persistence goes through
// cache.Store; upstream access goes through the Source capability so the
// coordinator never knows which host family it is talking to.
package coordinator
