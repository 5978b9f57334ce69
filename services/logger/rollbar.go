package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo/core"
)

// RollbarLogger prints one line per entry to a standard logger and reports it to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is a log call split the way Rollbar wants it.
type entry struct {
	msg    string
	err    error // reported as the item when set
	extras map[string]interface{}
}

// newEntry reads args as: the first error, any number of context maps (merged, later keys win),
// and anything else, kept under "args".
func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, extras: make(map[string]interface{})}
	var rest []string
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			if e.err == nil {
				e.err = a
			} else {
				rest = append(rest, a.Error())
			}
		case map[string]interface{}:
			for k, v := range a {
				e.extras[k] = v
			}
		default:
			rest = append(rest, fmt.Sprint(a))
		}
	}
	if len(rest) > 0 {
		e.extras["args"] = rest
	}
	if e.err != nil {
		e.extras["message"] = msg
	}
	return e
}

// String renders the entry as `msg key=value... error=...`, keys sorted.
func (e entry) String() string {
	var b strings.Builder
	b.WriteString(e.msg)

	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		if k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.extras[k])
	}
	if e.err != nil {
		fmt.Fprintf(&b, " error=%q", e.err.Error())
	}
	return b.String()
}

func (l RollbarLogger) report(level, msg string, args []interface{}) entry {
	e := newEntry(msg, args)
	if e.err != nil {
		rollbar.ErrorWithExtras(level, e.err, e.extras)
	} else {
		rollbar.MessageWithExtras(level, e.msg, e.extras)
	}
	_ = l.std.Output(3, level+": "+e.String())
	return e
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
}

// Fatal waits for queued Rollbar items before exiting.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(e.String())
}
