// Package provider holds the per-host-family adapters that turn upstream
// release listings into the normalized release model. GitHub, GitLab and
// Forgejo speak REST JSON; cgit is scraped from its refs/tags HTML table.
// Adapters register a factory under their route name at init time; the
// server builds one instance per family sharing a single HTTP client and
// hands them to the coordinator through the Source capability.
package provider
