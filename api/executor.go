// File: api/executor.go
// Author: momentics

package api

// Executor is the task-submission surface the queued backends sit on.
// Submit never blocks on a full queue; it either accepts the task or fails.
type Executor interface {
	Submit(task func()) error
	NumWorkers() int
	Resize(newCount int)
}
