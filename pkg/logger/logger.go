package logger

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Logger is a small leveled logger that writes key=value pairs to stdout.
type Logger struct {
	out   *log.Logger
	level Level
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func New(level string) *Logger {
	return &Logger{
		out:   log.New(os.Stdout, "", 0),
		level: parseLevel(level),
	}
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.write("DEBUG", msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.write("INFO", msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.write("WARN", msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.write("ERROR", msg, args...)
	}
}

func (l *Logger) write(level, msg string, args ...interface{}) {
	message := fmt.Sprintf("[%s] [%s] %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)

	if len(args) > 0 {
		message += " |"
		for i := 0; i+1 < len(args); i += 2 {
			message += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		}
	}

	l.out.Println(message)
}
