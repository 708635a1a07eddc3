// Package server implements the threadctl.ThreadControl gRPC service on top of
// a threadctl.Manager.
package server

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/highwayhash"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

// Server implements the threadctlpb.ThreadControlServer interface.
type Server struct {
	fingerprint uuid.UUID
	manager     *threadctl.Manager
	logger      *zap.Logger
	hash        binaryHashOnce
	captures    *stackCapturer

	threadctlpb.UnimplementedThreadControlServer
}

var _ threadctlpb.ThreadControlServer = (*Server)(nil)

type binaryHashOnce struct {
	sync.Once
	hash string
	err  error
}

// NewServer constructs a new Server serving the threads tracked by manager.
func NewServer(
	fingerprint uuid.UUID,
	manager *threadctl.Manager,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		fingerprint: fingerprint,
		manager:     manager,
		logger:      logger,
		captures:    newStackCapturer(),
	}
}

// ListThreads implements threadctlpb.ThreadControlServer.
func (s *Server) ListThreads(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	hash, err := s.getBinaryHash()
	if err != nil {
		// The listing is still useful without the hash.
		s.logger.Warn("failed to hash executable", zap.Error(err))
	}
	p := threadctlpb.Process{
		Fingerprint: s.fingerprint.String(),
		BinaryHash:  hash,
		Pid:         os.Getpid(),
	}
	for _, t := range s.manager.List() {
		p.Threads = append(p.Threads, threadInfo(t))
	}
	return p.ToStruct(), nil
}

// Suspend implements threadctlpb.ThreadControlServer.
func (s *Server) Suspend(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	t, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	c, err := t.Suspend(ctx)
	if err != nil {
		return nil, s.toStatus("suspend", t, err)
	}
	return contextInfo(t, c).ToStruct(), nil
}

// Resume implements threadctlpb.ThreadControlServer.
func (s *Server) Resume(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	t, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	if err := t.Resume(); err != nil {
		return nil, s.toStatus("resume", t, err)
	}
	return &emptypb.Empty{}, nil
}

// CaptureStack implements threadctlpb.ThreadControlServer. Concurrent calls
// for the same thread share one suspension.
func (s *Server) CaptureStack(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	t, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	info, err := s.captures.Capture(ctx, t)
	if err != nil {
		return nil, s.toStatus("capture stack of", t, err)
	}
	return info.ToStruct(), nil
}

func (s *Server) lookup(req *wrapperspb.StringValue) (*threadctl.Thread, error) {
	id, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, threadctlpb.NewError(codes.InvalidArgument, threadctlpb.ReasonInvalidID,
			fmt.Sprintf("invalid thread id %q: %v", req.GetValue(), err))
	}
	t, ok := s.manager.Lookup(id)
	if !ok {
		return nil, threadctlpb.NewError(codes.NotFound, threadctlpb.ReasonThreadMissing,
			fmt.Sprintf("thread %s not found", id))
	}
	return t, nil
}

// toStatus maps the suspend protocol's errors to gRPC statuses.
func (s *Server) toStatus(op string, t *threadctl.Thread, err error) error {
	msg := fmt.Sprintf("failed to %s thread %s: %v", op, t.ID(), err)
	switch {
	case errors.Is(err, threadctl.ErrNotRunning):
		return threadctlpb.NewError(codes.FailedPrecondition, threadctlpb.ReasonNotRunning, msg)
	case errors.Is(err, threadctl.ErrNotSuspended):
		return threadctlpb.NewError(codes.FailedPrecondition, threadctlpb.ReasonNotSuspended, msg)
	case errors.Is(err, threadctl.ErrSuspendTimeout):
		return threadctlpb.NewError(codes.DeadlineExceeded, threadctlpb.ReasonSuspendTimeout, msg)
	case errors.Is(err, threadctl.ErrContextCaptureFailed):
		return threadctlpb.NewError(codes.Internal, threadctlpb.ReasonCaptureFailed, msg)
	case errors.Is(err, threadctl.ErrSignalDeliveryFailed):
		return threadctlpb.NewError(codes.Internal, threadctlpb.ReasonSignalFailed, msg)
	case errors.Is(err, threadctl.ErrMisc):
		s.logger.Error("suspend protocol error", zap.Stringer("thread", t.ID()), zap.Error(err))
		return threadctlpb.NewError(codes.Internal, threadctlpb.ReasonMisc, msg)
	case errors.Is(err, context.Canceled):
		return threadctlpb.NewError(codes.Canceled, threadctlpb.ReasonUnknown, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return threadctlpb.NewError(codes.DeadlineExceeded, threadctlpb.ReasonUnknown, msg)
	default:
		return threadctlpb.NewError(codes.Unknown, threadctlpb.ReasonUnknown, msg)
	}
}

func threadInfo(t *threadctl.Thread) threadctlpb.Thread {
	return threadctlpb.Thread{
		ID:        t.ID().String(),
		Name:      t.Name(),
		Tid:       t.Handle(),
		Goid:      t.GoroutineID(),
		State:     t.State().String(),
		StartedAt: t.StartedAt(),
	}
}

func contextInfo(t *threadctl.Thread, c threadctl.Context) threadctlpb.Context {
	info := threadctlpb.Context{
		ThreadID:   t.ID().String(),
		Goid:       c.Goid,
		Tid:        c.Tid,
		CapturedAt: c.CapturedAt,
		Digest:     fmt.Sprintf("%016x", c.Digest()),
	}
	for _, f := range c.Frames() {
		info.Frames = append(info.Frames, threadctlpb.Frame{
			PC:       uint64(f.PC),
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
		})
	}
	return info
}

func (s *Server) getBinaryHash() (string, error) {
	s.hash.Once.Do(func() {
		s.hash.hash, s.hash.err = doHash()
	})
	return s.hash.hash, s.hash.err
}

var hashKey = [32]byte{}

func doHash() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exeFile, err := os.Open(exe)
	if err != nil {
		return "", fmt.Errorf("failed to open executable file at %s: %w", exe, err)
	}
	defer exeFile.Close()
	hasher, err := highwayhash.New64(hashKey[:])
	if err != nil {
		return "", fmt.Errorf("failed to create hasher: %w", err)
	}
	if _, err := io.Copy(hasher, bufio.NewReader(exeFile)); err != nil {
		return "", fmt.Errorf("failed to hash executable: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
