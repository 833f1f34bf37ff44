// Package domain holds the value types shared by every layer of qa-extract.
//
// An Entity is one cleaned object from a domain's tool server. Its
// Fingerprint decides whether the cached TrainingRecords can be reused.
// Records carry a SourceRef URI (mcp://<domain>/<kind>/<id>) which the
// review store groups by when replacing an entity's records; annotated
// items are copied into ArchiveRecords first. RunSummary and the report
// types describe a finished run.
//
// The package depends on the standard library only.
package domain
