// Package model defines the provider-neutral language model contract used by
// assistants: a Request (instructions, history, tool schemas) produces a
// Response holding either free text or one or more function calls.
//
// Sub-packages adapt concrete providers (openai, anthropic, gemini).
// ScriptedModel replays canned replies for tests and demos.
package model
