package threadctlpb

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Thread describes one managed thread.
type Thread struct {
	ID        string
	Name      string
	Tid       int
	Goid      int64
	State     string
	StartedAt time.Time
}

// Frame is one symbolized program counter of a Context.
type Frame struct {
	PC       uint64
	Function string
	File     string
	Line     int
}

// Context is the execution context captured from a suspended thread.
type Context struct {
	ThreadID   string
	Goid       int64
	Tid        int
	CapturedAt time.Time
	// Digest is the hex-encoded digest of the program counters.
	Digest string
	Frames []Frame
}

// Process is the response to ListThreads.
type Process struct {
	// Fingerprint identifies the serving agent.
	Fingerprint string
	// BinaryHash identifies the executable.
	BinaryHash string
	Pid        int
	Threads    []Thread
}

func str(s string) *structpb.Value {
	return structpb.NewStringValue(s)
}

func num[T int | int64](n T) *structpb.Value {
	return structpb.NewNumberValue(float64(n))
}

func timestamp(t time.Time) *structpb.Value {
	if t.IsZero() {
		return str("")
	}
	return str(t.UTC().Format(time.RFC3339Nano))
}

func parseTimestamp(s *structpb.Struct, key string) (time.Time, error) {
	v := s.GetFields()[key].GetStringValue()
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return t, nil
}

func getString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func getInt(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

func getList(s *structpb.Struct, key string) []*structpb.Value {
	return s.GetFields()[key].GetListValue().GetValues()
}

// ToStruct encodes t for the wire.
func (t Thread) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         str(t.ID),
		"name":       str(t.Name),
		"tid":        num(t.Tid),
		"goid":       num(t.Goid),
		"state":      str(t.State),
		"started_at": timestamp(t.StartedAt),
	}}
}

// ThreadFromStruct decodes a Thread encoded by ToStruct.
func ThreadFromStruct(s *structpb.Struct) (Thread, error) {
	startedAt, err := parseTimestamp(s, "started_at")
	if err != nil {
		return Thread{}, err
	}
	t := Thread{
		ID:        getString(s, "id"),
		Name:      getString(s, "name"),
		Tid:       int(getInt(s, "tid")),
		Goid:      getInt(s, "goid"),
		State:     getString(s, "state"),
		StartedAt: startedAt,
	}
	if t.ID == "" {
		return Thread{}, fmt.Errorf("thread is missing its id")
	}
	return t, nil
}

// ToStruct encodes c for the wire. Program counters are sent as hex strings
// since they do not fit a double.
func (c Context) ToStruct() *structpb.Struct {
	frames := make([]*structpb.Value, 0, len(c.Frames))
	for _, f := range c.Frames {
		frames = append(frames, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"pc":       str("0x" + strconv.FormatUint(f.PC, 16)),
			"function": str(f.Function),
			"file":     str(f.File),
			"line":     num(f.Line),
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"thread_id":   str(c.ThreadID),
		"goid":        num(c.Goid),
		"tid":         num(c.Tid),
		"captured_at": timestamp(c.CapturedAt),
		"digest":      str(c.Digest),
		"frames":      structpb.NewListValue(&structpb.ListValue{Values: frames}),
	}}
}

// ContextFromStruct decodes a Context encoded by ToStruct.
func ContextFromStruct(s *structpb.Struct) (Context, error) {
	capturedAt, err := parseTimestamp(s, "captured_at")
	if err != nil {
		return Context{}, err
	}
	c := Context{
		ThreadID:   getString(s, "thread_id"),
		Goid:       getInt(s, "goid"),
		Tid:        int(getInt(s, "tid")),
		CapturedAt: capturedAt,
		Digest:     getString(s, "digest"),
	}
	for i, v := range getList(s, "frames") {
		fs := v.GetStructValue()
		if fs == nil {
			return Context{}, fmt.Errorf("frame %d is not a struct", i)
		}
		pc, err := strconv.ParseUint(getString(fs, "pc"), 0, 64)
		if err != nil {
			return Context{}, fmt.Errorf("frame %d: invalid pc: %w", i, err)
		}
		c.Frames = append(c.Frames, Frame{
			PC:       pc,
			Function: getString(fs, "function"),
			File:     getString(fs, "file"),
			Line:     int(getInt(fs, "line")),
		})
	}
	return c, nil
}

// ToStruct encodes p for the wire.
func (p Process) ToStruct() *structpb.Struct {
	threads := make([]*structpb.Value, 0, len(p.Threads))
	for _, t := range p.Threads {
		threads = append(threads, structpb.NewStructValue(t.ToStruct()))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"fingerprint": str(p.Fingerprint),
		"binary_hash": str(p.BinaryHash),
		"pid":         num(p.Pid),
		"threads":     structpb.NewListValue(&structpb.ListValue{Values: threads}),
	}}
}

// ProcessFromStruct decodes a Process encoded by ToStruct.
func ProcessFromStruct(s *structpb.Struct) (Process, error) {
	p := Process{
		Fingerprint: getString(s, "fingerprint"),
		BinaryHash:  getString(s, "binary_hash"),
		Pid:         int(getInt(s, "pid")),
	}
	for i, v := range getList(s, "threads") {
		ts := v.GetStructValue()
		if ts == nil {
			return Process{}, fmt.Errorf("thread %d is not a struct", i)
		}
		t, err := ThreadFromStruct(ts)
		if err != nil {
			return Process{}, fmt.Errorf("thread %d: %w", i, err)
		}
		p.Threads = append(p.Threads, t)
	}
	return p, nil
}
