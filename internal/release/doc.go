// Package release defines the normalized release/asset model shared by every
// upstream adapter, the disk cache and the HTML renderer. Adapters translate
// host-specific payloads (REST JSON or scraped HTML) into []Release ordered
// newest-first; everything downstream treats Releases[0] as the latest build
// without re-sorting. The package also owns Key, the host/owner/repo triple
// used as cache partition key and single-flight lock key.
package release
