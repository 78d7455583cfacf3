// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives behind the dispatch backends: a work-stealing
// Executor with per-worker lock-free queues, a bounded ThreadPool, and
// CPU/NUMA pinning for worker threads (Linux via sched_setaffinity,
// Windows via SetThreadAffinityMask, no-op elsewhere).
package concurrency
