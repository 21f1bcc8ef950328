package intake

import (
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
)

// PanicLogger receives recovered panics.
type PanicLogger func(funcName string, err any, stack []byte, fields ...map[string]any)

// MakePanicHandler returns a deferrable recover that reports to logger.
//
//	defer intake.MakePanicHandler(logger)("gateway.lookup", fields)
func MakePanicHandler(logger PanicLogger) func(funcName string, fields ...map[string]any) {
	if logger == nil {
		logger = DefaultPanicLogger
	}
	return func(funcName string, fields ...map[string]any) {
		if err := recover(); err != nil {
			stack := make([]byte, 8096)
			stack = stack[:runtime.Stack(stack, false)]
			logger(funcName, err, trimPanicFrames(stack), fields...)
		}
	}
}

// RecoverError runs fn and converts a panic into an error.
func RecoverError(funcName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in %s: %v", funcName, r)
		}
	}()
	return fn()
}

func DefaultPanicLogger(funcName string, err any, stack []byte, fields ...map[string]any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[FATAL] recovered from panic in %s\n", funcName)
	fmt.Fprintf(&sb, "Error: %v (%T)\n", err, err)

	if len(fields) > 0 && len(fields[0]) > 0 {
		sb.WriteString("Context:\n")
		keys := make([]string, 0, len(fields[0]))
		for k := range fields[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, fields[0][k])
		}
	}

	sb.WriteString("Stack Trace:\n")
	sb.Write(stack)
	log.Print(sb.String())
}

// trimPanicFrames drops the runtime frames above the panic call.
func trimPanicFrames(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			if i+2 < len(lines) {
				lines = lines[i+2:]
			}
			break
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
