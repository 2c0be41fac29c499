package utils

import (
	"log"
)

// Log writes a single structured line to the standard logger.
func Log(level, module, operation, details string) {
	log.Printf("[%s] module=%s op=%s %s", level, module, operation, details)
}

func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}
