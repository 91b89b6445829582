package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application starts and stops the worker pool
// through it; API handlers use EnqueueTask to trigger out-of-cycle runs.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
