// Package behavioral turns assistant session logs into an analytics Document.
//
// Lines are parsed into Events by a Parser, grouped into Sessions by an
// Aggregator, and the finalized SessionSet is read by independent extractors
// (tokens and cost, tools, MCP servers, subagents, time patterns, tool
// chains, errors, projects, sessions). Health rules then inspect the
// assembled Document. Pipeline wires these stages over a directory of
// .jsonl files.
//
// Malformed lines never abort a run; they are counted in Document.Meta.
// Only a missing input root, invalid pricing or thresholds, and an empty
// input when sessions are required are fatal.
package behavioral
