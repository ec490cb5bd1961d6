//go:build unix

package process

import "syscall"

func hiddenAttr() *syscall.SysProcAttr {
	return nil
}

// detachedAttr starts the child in its own session so it survives the parent
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
