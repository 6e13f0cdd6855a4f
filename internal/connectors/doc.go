// Package connectors contains the source fetchers for vigil's
// intelligence feeds. Each subpackage implements driven.Fetcher for
// one upstream: NVD, PyPI, GitHub security advisories, and the MITRE
// ATT&CK and CAPEC catalogs.
//
// Fetchers return raw documents exactly as the orchestrator archives
// them; parsing belongs to the specialists. Rate limiting and
// authentication are each fetcher's own concern.
package connectors
