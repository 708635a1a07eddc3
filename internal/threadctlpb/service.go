// Package threadctlpb describes the threadctl.ThreadControl gRPC service.
//
// The service carries protobuf well-known types on the wire: requests name a
// thread with a StringValue holding its id, and responses are Structs whose
// layout is given by the message types in messages.go.
package threadctlpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "threadctl.ThreadControl"

const (
	ThreadControl_ListThreads_FullMethodName  = "/" + ServiceName + "/ListThreads"
	ThreadControl_Suspend_FullMethodName      = "/" + ServiceName + "/Suspend"
	ThreadControl_Resume_FullMethodName       = "/" + ServiceName + "/Resume"
	ThreadControl_CaptureStack_FullMethodName = "/" + ServiceName + "/CaptureStack"
)

// ThreadControlClient is the client API for the ThreadControl service.
type ThreadControlClient interface {
	// ListThreads returns a Process.
	ListThreads(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Suspend parks the thread and returns its captured Context.
	Suspend(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Resume(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	// CaptureStack suspends, captures and resumes the thread in one call.
	CaptureStack(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type threadControlClient struct {
	cc grpc.ClientConnInterface
}

func NewThreadControlClient(cc grpc.ClientConnInterface) ThreadControlClient {
	return &threadControlClient{cc}
}

func (c *threadControlClient) ListThreads(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ThreadControl_ListThreads_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *threadControlClient) Suspend(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ThreadControl_Suspend_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *threadControlClient) Resume(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, ThreadControl_Resume_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *threadControlClient) CaptureStack(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ThreadControl_CaptureStack_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ThreadControlServer is the server API for the ThreadControl service.
// Implementations must embed UnimplementedThreadControlServer.
type ThreadControlServer interface {
	ListThreads(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Suspend(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Resume(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	CaptureStack(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	mustEmbedUnimplementedThreadControlServer()
}

// UnimplementedThreadControlServer answers every method with
// codes.Unimplemented.
type UnimplementedThreadControlServer struct{}

func (UnimplementedThreadControlServer) ListThreads(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListThreads not implemented")
}
func (UnimplementedThreadControlServer) Suspend(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Suspend not implemented")
}
func (UnimplementedThreadControlServer) Resume(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Resume not implemented")
}
func (UnimplementedThreadControlServer) CaptureStack(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CaptureStack not implemented")
}
func (UnimplementedThreadControlServer) mustEmbedUnimplementedThreadControlServer() {}

func RegisterThreadControlServer(s grpc.ServiceRegistrar, srv ThreadControlServer) {
	s.RegisterService(&ThreadControl_ServiceDesc, srv)
}

func _ThreadControl_ListThreads_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ThreadControlServer).ListThreads(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ThreadControl_ListThreads_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ThreadControlServer).ListThreads(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _ThreadControl_Suspend_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ThreadControlServer).Suspend(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ThreadControl_Suspend_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ThreadControlServer).Suspend(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ThreadControl_Resume_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ThreadControlServer).Resume(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ThreadControl_Resume_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ThreadControlServer).Resume(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ThreadControl_CaptureStack_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ThreadControlServer).CaptureStack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ThreadControl_CaptureStack_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ThreadControlServer).CaptureStack(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ThreadControl_ServiceDesc is the grpc.ServiceDesc for the ThreadControl
// service.
var ThreadControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ThreadControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListThreads",
			Handler:    _ThreadControl_ListThreads_Handler,
		},
		{
			MethodName: "Suspend",
			Handler:    _ThreadControl_Suspend_Handler,
		},
		{
			MethodName: "Resume",
			Handler:    _ThreadControl_Resume_Handler,
		},
		{
			MethodName: "CaptureStack",
			Handler:    _ThreadControl_CaptureStack_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "threadctl.proto",
}
