// Package generation runs the bounded generate-then-check loop that turns
// parsed file contents into a quiz. The LLM provider sits behind the Agent
// interface (see platform/gemini for the Gemini implementation); the Runner
// retries failed drafts and drafts rejected by the safety check, shuffles
// the answers of an accepted quiz, and reports each attempt to an Observer.
package generation
