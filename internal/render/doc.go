// Package render turns release snapshots into the HTML pages the proxy
// serves: the per-repository release listing (also persisted to disk beside
// the JSON snapshot), the processing placeholder shown while a refresh runs,
// the error page for failed fetches, and the landing page.
package render
