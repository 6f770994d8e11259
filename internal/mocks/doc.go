// Package mocks provides centralized test doubles for the interfaces the
// pipeline depends on.
//
// Every mock has optional function fields that override its behavior and
// records calls for verification. The store mocks are stateful in-memory
// fakes by default, so a test can drive a job through several handlers and
// observe the persisted result:
//
//	jobs := mocks.NewMockJobStore()
//	jobs.UpdateFn = func(ctx context.Context, job *domain.QuizGenerationJob) error {
//	    return store.ErrConcurrentUpdate
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
package mocks
