package utils

import (
	"log"
	"os"
)

// InitLogger returns the application logger.
func InitLogger() *log.Logger {
	return log.New(os.Stdout, "[StudyBuddy] ", log.LstdFlags|log.LUTC)
}
