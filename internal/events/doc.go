// Package events defines the messages exchanged between the orchestrator,
// the parsing workers and the generation worker, together with the
// broker-independent Publisher and Handler interfaces.
//
// The primary components are:
// - ParseRequest, FileParsed, GenerationRequest, GenerationCompleted payloads
// - Publisher: sends a payload to a named queue
// - Handler: processes a delivered Message
package events
