// Package log is a minimal logging package.
//
// Logf / Verbosef / Errorf print to stdout. After Init() they are also
// written to daily files under Config.Dir. Event() records structured
// events (toon-encoded key / value pairs) in a separate events log.
// Without Init() files are not written.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kjk/kpdb/siser"
	"github.com/kjk/kpdb/u"
	"github.com/toon-format/toon-go"
)

var (
	logFile    *DailyFile
	errorsFile *DailyFile
	eventsFile *DailyFile
	// frames events written to eventsFile
	events *siser.Writer

	// if true, Verbosef() will log messages
	Verbose bool

	// if true, Logf() doesn't print to stdout
	Quiet bool
)

type Config struct {
	// directory where log files are stored.
	// Regular log, errors and events each have a sub-directory.
	// Events are siser-framed so they use .siser extension
	Dir string
}

// Init initializes logging to files in config.Dir
func Init(config *Config) {
	Close()
	dir := config.Dir
	logFile = NewDailyFile(filepath.Join(dir, "log"), ".txt")
	errorsFile = NewDailyFile(filepath.Join(dir, "errors"), ".txt")
	eventsFile = NewDailyFile(filepath.Join(dir, "events"), ".siser")
	events = siser.NewWriter(eventsFile)
}

// EventsPath returns path of the current events file, "" if
// no event was written since Init()
func EventsPath() string {
	return eventsFile.Path()
}

// Close closes log files. Until next Init() nothing is written to files
func Close() {
	logFile.Close()
	errorsFile.Close()
	eventsFile.Close()
	logFile = nil
	errorsFile = nil
	eventsFile = nil
	events = nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if !Quiet {
		fmt.Fprint(os.Stdout, s)
	}
	logFile.WriteString(s)
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(2)
	s = s + "\n" + cs + "\n"
	Logf("%s", s)
	errorsFile.WriteString(s)
}

// IfErrf logs err and returns true if err != nil
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// keys of events must be simple types
func simpleTypeToStr(v any) string {
	rt := reflect.TypeOf(v)
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// encodeEvent returns toon-encoded key / value pairs, nil if there are none
func encodeEvent(vals ...any) ([]byte, error) {
	n := len(vals)
	u.PanicIf(n%2 != 0, "log: odd number of event key / value arguments (%d)", n)
	if n == 0 {
		return nil, nil
	}
	m := map[string]any{}
	for i := 0; i < n; i += 2 {
		k := simpleTypeToStr(vals[i])
		m[k] = vals[i+1]
	}
	return toon.Marshal(m)
}

// Event logs an event with key / value pairs e.g.
// Event("kpdb.publish", "path", path, "records", 5)
func Event(name string, vals ...any) {
	if events == nil {
		return
	}
	d, err := encodeEvent(vals...)
	if err != nil {
		Errorf("log.Event('%s') failed with '%s'", name, err)
		return
	}
	if _, err = events.Write(d, time.Now().UTC(), name); err != nil {
		Errorf("log.Event('%s') failed with '%s'", name, err)
	}
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
