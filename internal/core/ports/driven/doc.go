// Package driven lists what the core needs from the outside world.
//
// Services receive these as constructor arguments; adapters under
// internal/adapters/driven and internal/connectors satisfy them.
//
// Always wired by the builder:
//
//   - ModelGateway: prompt in, text out. Generation and judging each get one.
//   - EntitySource: fetch plus clean for a single domain, backed by a ToolCaller.
//   - RecordWriter: writes <domain>_qa_pairs.jsonl.
//   - PromptStore: system prompts, embedded or overridden on disk.
//   - ConfigStore: dotted-key settings.
//
// May be nil:
//
//   - CacheStore: with none, every entity is treated as changed.
//   - ReviewStore: with none, entity replace is skipped and records are only written locally.
//
// Nothing here imports an adapter; only domain types cross this boundary.
package driven
