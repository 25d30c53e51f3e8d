// Package cmd provides common command line tools for the acmeorder binaries.
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	logrus.Fatalf("[!] %s - %s", msg, err)
}

var signalToName = map[os.Signal]string{
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGHUP:  "SIGHUP",
}

// CatchSignals catches SIGTERM, SIGINT, SIGHUP and executes a callback
// method before exiting
func CatchSignals(callback func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	sig := <-sigChan
	logrus.Infof("Caught %s", signalToName[sig])

	if callback != nil {
		callback()
	}

	logrus.Info("Exiting")
	os.Exit(0)
}

// ParseLevel parses a logrus level name, falling back to info for an empty
// name.
func ParseLevel(name string) (logrus.Level, error) {
	if name == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(name)
}
