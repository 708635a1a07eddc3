package threadctlpb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestContextSurvivesTheWire(t *testing.T) {
	c := Context{
		ThreadID:   "5d1b7a53-7d6c-4b4c-8c4e-2b0f0b0e5a11",
		Goid:       42,
		Tid:        1234,
		CapturedAt: time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC),
		Digest:     "00112233aabbccdd",
		Frames: []Frame{
			// Larger than a double can hold exactly.
			{PC: 0xffff_8000_0040_1a2b, Function: "main.work", File: "/src/main.go", Line: 17},
			{PC: 0x401000, Function: "runtime.goexit", File: "/go/src/runtime/asm_amd64.s", Line: 1700},
		},
	}
	buf, err := proto.Marshal(c.ToStruct())
	require.NoError(t, err)
	var s structpb.Struct
	require.NoError(t, proto.Unmarshal(buf, &s))

	got, err := ContextFromStruct(&s)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestProcessFromStructRejectsBadThreads(t *testing.T) {
	p := Process{
		Fingerprint: "fp",
		Pid:         7,
		Threads:     []Thread{{ID: "a", Name: "worker", State: "running"}},
	}
	got, err := ProcessFromStruct(p.ToStruct())
	require.NoError(t, err)
	require.Equal(t, p, got)

	s := p.ToStruct()
	s.Fields["threads"] = structpb.NewListValue(&structpb.ListValue{
		Values: []*structpb.Value{structpb.NewStringValue("nope")},
	})
	_, err = ProcessFromStruct(s)
	require.ErrorContains(t, err, "not a struct")

	s.Fields["threads"] = structpb.NewListValue(&structpb.ListValue{
		Values: []*structpb.Value{structpb.NewStructValue(&structpb.Struct{})},
	})
	_, err = ProcessFromStruct(s)
	require.ErrorContains(t, err, "missing its id")
}

func TestContextFromStructBadTimestamp(t *testing.T) {
	s := Context{ThreadID: "a"}.ToStruct()
	s.Fields["captured_at"] = structpb.NewStringValue("yesterday")
	_, err := ContextFromStruct(s)
	require.ErrorContains(t, err, "captured_at")
}

func TestReasonRoundTrip(t *testing.T) {
	err := NewError(codes.DeadlineExceeded, ReasonSuspendTimeout, "too slow")
	s, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.DeadlineExceeded, s.Code())
	require.Equal(t, "too slow", s.Message())
	require.Equal(t, ReasonSuspendTimeout, ReasonOf(s))

	s = status.New(codes.Internal, "plain")
	require.Equal(t, ReasonUnknown, ReasonOf(s))
}
