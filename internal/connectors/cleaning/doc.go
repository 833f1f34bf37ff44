// Package cleaning holds the helpers every domain connector uses to turn raw
// tool output into stable, model-ready fields: HTML stripping, list
// filtering, truncation and the optional PII scrubber.
package cleaning
