//go:build !unix

package services

import "os/exec"

// Without process groups only the direct child is killed; WaitDelay still
// bounds how long Wait blocks on inherited pipes.
func killProcessGroupOnCancel(cmd *exec.Cmd) {}
