package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "ytgrab.control.v1.Control"

const (
	checkForUpdateMethod = "/" + ServiceName + "/CheckForUpdate"
	statusMethod         = "/" + ServiceName + "/Status"
	updateMethod         = "/" + ServiceName + "/Update"
	watchMethod          = "/" + ServiceName + "/Watch"
)

// ControlServer is the server API for the control service
type ControlServer interface {
	CheckForUpdate(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Update(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Watch(*emptypb.Empty, WatchServer) error
}

// WatchServer is the server side of the Watch stream
type WatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (x *watchServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterControlServer registers srv on s
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(method string, call func(ControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ControlServer).Watch(m, &watchServer{stream})
}

// ServiceDesc describes the control service. Messages are protobuf
// well-known types, so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckForUpdate",
			Handler:    unaryHandler(checkForUpdateMethod, ControlServer.CheckForUpdate),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(statusMethod, ControlServer.Status),
		},
		{
			MethodName: "Update",
			Handler:    unaryHandler(updateMethod, ControlServer.Update),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "ytgrab/control/v1/control.proto",
}

// Client is the client API for the control service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) unary(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckForUpdate asks the host to check the release feed
func (c *Client) CheckForUpdate(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, checkForUpdateMethod, opts...)
}

// Status returns the host's update status
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, statusMethod, opts...)
}

// Update starts an update run on the host
func (c *Client) Update(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, updateMethod, opts...)
}

// WatchClient is the client side of the Watch stream
type WatchClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (x *watchClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch streams host events until ctx is done or the server goes away
func (c *Client) Watch(ctx context.Context, opts ...grpc.CallOption) (WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], watchMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
