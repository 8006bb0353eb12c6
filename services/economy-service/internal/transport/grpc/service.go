package grpc_server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "economy.v1.EconomyService"

// EconomyServiceServer is the internal RPC surface. Messages are
// google.protobuf.Struct documents so callers need no generated stubs.
type EconomyServiceServer interface {
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyCurrency(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Purchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UseItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(EconomyServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EconomyServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(EconomyServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var EconomyServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EconomyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetProfile", EconomyServiceServer.GetProfile),
		unary("CreateProfile", EconomyServiceServer.CreateProfile),
		unary("ApplyCurrency", EconomyServiceServer.ApplyCurrency),
		unary("Purchase", EconomyServiceServer.Purchase),
		unary("UseItem", EconomyServiceServer.UseItem),
		unary("RecordAction", EconomyServiceServer.RecordAction),
		unary("Evaluate", EconomyServiceServer.Evaluate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "economy/v1/economy.proto",
}

func RegisterEconomyServiceServer(s grpc.ServiceRegistrar, srv EconomyServiceServer) {
	s.RegisterService(&EconomyServiceDesc, srv)
}

// EconomyClient calls EconomyService over an existing connection.
type EconomyClient struct {
	cc grpc.ClientConnInterface
}

func NewEconomyClient(cc grpc.ClientConnInterface) *EconomyClient {
	return &EconomyClient{cc: cc}
}

func (c *EconomyClient) Call(ctx context.Context, method string, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
