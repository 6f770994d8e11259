// Package task runs the generation worker: QuizGenerationTask turns one
// generation request into a completion event, and WorkerPool keeps a fixed
// number of queue consumers running until shutdown.
package task
