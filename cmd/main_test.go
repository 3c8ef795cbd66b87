package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"vigil/logger"
)

func TestHandleSignalEventReturnsOnSignal(t *testing.T) {
	logger.Init("error")

	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		handleSignalEvent(sigChan)
		close(done)
	}()

	sigChan <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal handler did not return")
	}
}
