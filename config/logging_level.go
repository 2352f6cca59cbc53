package config

import (
	"sync"

	"go.viam.com/crowdsim/logging"
)

var globalLogger struct {
	// These variables are initialized once at startup. No need for special synchronization.
	logger           logging.Logger
	cmdLineDebugFlag bool

	// The file flag changes whenever a watched config is reloaded, possibly from the watcher
	// goroutine, and every change re-evaluates the log level.
	mu                  sync.Mutex
	fileConfigDebugFlag bool
}

// InitLoggingSettings initializes the global logging settings.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	globalLogger.fileConfigDebugFlag = false
	if cmdLineDebugFlag {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.INFO)
	}
	logger.Debug("Log level initialized: ", logger.GetLevel())
}

// UpdateFileConfigDebug is used to update the debug flag whenever a config file is read.
func UpdateFileConfigDebug(fileDebug bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.fileConfigDebugFlag = fileDebug
	refreshLogLevelInLock()
}

func refreshLogLevelInLock() {
	if globalLogger.logger == nil {
		return
	}
	newLevel := logging.INFO
	if globalLogger.cmdLineDebugFlag || globalLogger.fileConfigDebugFlag {
		// If anything wants debug logs, set the level to `Debug`.
		newLevel = logging.DEBUG
	}

	if globalLogger.logger.GetLevel() == newLevel {
		return
	}
	globalLogger.logger.Info("New log level: ", newLevel)
	globalLogger.logger.SetLevel(newLevel)
}
