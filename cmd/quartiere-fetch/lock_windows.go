//go:build windows

package main

import "os"

// No advisory locks on Windows; concurrent runs are the operator's problem.
func lock(f *os.File) error   { return nil }
func unlock(f *os.File) error { return nil }
