// Package queue persists content jobs and their per-platform publish results
// in SQLite. Exactly one stage owns a job at a time; once a job reaches a
// terminal status (done, partial_failure, failed) it is never resumed.
package queue
