// Package domain contains the core business entities of the quiz generation
// pipeline: the generation job and its state machine, parsed file cache
// entries, quizzes, users and subscription tiers. It has no dependencies on
// storage, transport or the language model.
package domain
