// Package file keeps user settings and prompt overrides under the
// qa-extract home directory (~/.qa-extract by default).
//
// config.toml is read once at construction and rewritten atomically on
// every SetMany. Prompt files in prompts/ shadow the embedded defaults by
// name, e.g. prompts/judge_system.txt.
package file
