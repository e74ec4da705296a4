//go:build windows

package git

import "os/exec"

// killProcessGroupOnCancel leaves the default cancellation in place; WaitDelay
// still bounds the wait on inherited pipes.
func killProcessGroupOnCancel(_ *exec.Cmd) {}
