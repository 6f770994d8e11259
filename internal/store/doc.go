// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the pipeline's core logic, allowing orchestration rules to remain
// independent of specific database technologies or persistence details.
package store
