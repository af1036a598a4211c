package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/JoshuaDoes/logger"
	felutils "github.com/JoshuaDoes/sunxi-fel"
)

// logAdapter narrows *logger.Logger to the engine's logging surface.
type logAdapter struct {
	l *logger.Logger
}

func (a *logAdapter) Infof(format string, args ...interface{}) {
	a.l.Infof(format, args...)
}

func (a *logAdapter) Debugf(format string, args ...interface{}) {
	a.l.Debugf(format, args...)
}

func (a *logAdapter) Tracef(format string, args ...interface{}) {
	a.l.Tracef(format, args...)
}

func (a *logAdapter) Errorf(format string, args ...interface{}) {
	a.l.Errorf(format, args...)
}

func printProgress(ev felutils.ProgressEvent) {
	fmt.Printf("\r[%s] 0x%08X %6.2f%% (%d/%d)", ev.Category, ev.Address, ev.Percentage(), ev.Transferred, ev.Total)
	if ev.Transferred >= ev.Total {
		fmt.Println()
	}
}

func isFile(paths ...string) error {
	path := filepath.Join(paths...)
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file '%s' does not exist", path)
		}
		return fmt.Errorf("error opening file '%s': %v", path, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("'%s' is a directory", path)
	}
	return nil
}
