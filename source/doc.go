// Package source defines the content sources that feed ingestion:
// literal text, JSON records, web pages, local files and directory
// trees. Every source exposes a lazy chunk stream; incremental sources
// additionally push follow-up streams as their content changes.
//
// File-backed sources go through a MIME-keyed registry. Formats are
// registered at startup and an unregistered format is reported as a
// plain unsupported-format error.
package source
