package logger

import (
	"fmt"
	"log"
	"os"
)

// New returns a stderr logger with a component prefix. It serves code that
// runs before the slog handler is configured, such as config loading.
func New(component string) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return log.New(os.Stderr, prefix, log.LstdFlags|log.Lmsgprefix)
}
