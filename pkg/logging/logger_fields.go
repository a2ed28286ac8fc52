package logging

import (
	"time"
)

// Generic field constructors.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Duration renders d in Go duration syntax.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Error records err under "error"; nil is logged as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Component names the subsystem emitting the entry.
func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}

// Domain fields.

func EdgeID(id int) Field {
	return Int("edge_id", id)
}

func Rows(n int) Field {
	return Int("rows", n)
}

func Cols(n int) Field {
	return Int("cols", n)
}

func Workers(n int) Field {
	return Int("workers", n)
}

// RunID tags every entry of one influence build.
func RunID(id string) Field {
	return String("run_id", id)
}

func Branch(b string) Field {
	return String("branch", b)
}

func Mach(m float64) Field {
	return Float64("mach", m)
}
