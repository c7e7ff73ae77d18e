// Package thread provides OS-thread scheduling helpers used by goroutines
// with tight timing requirements, such as the pulse capture loop.
package thread

import (
	"runtime"
	"syscall"
	"unsafe"
)

// Realtime locks the calling goroutine to its own kernel thread and
// elevates that thread to the round-robin realtime scheduling policy at
// the given priority. Callers pick the priority: a tight edge-capture
// loop that can't tolerate being preempted by ordinary goroutines wants
// a priority safely above anything else on the box, but a lone realtime
// thread contending with nothing need not ask for the top of the range.
func Realtime(priority int) error {
	// First pin goroutine to its own kernel thread.
	runtime.LockOSThread()
	// Get the ID of the thread.
	tid := syscall.Gettid()
	// Give this thread realtime priority.
	res, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(RR), uintptr(unsafe.Pointer(&schedParam{priority})))
	if res == 0 {
		return nil
	}
	return err
}

const FIFO = 1 // fifo scheduling policy
const RR = 2   // round-robin scheduling policy

type schedParam struct {
	Priority int
}
