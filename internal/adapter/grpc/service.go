package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "ledger.v1.LedgerService"

// LedgerServiceServer is the server API for the ledger service.
// Every message is a google.protobuf.Struct; field names are documented on Server.
type LedgerServiceServer interface {
	IngestEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ImportEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RecalculatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	LinkTaxDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv LedgerServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(LedgerServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*structpb.Struct))
		})
	}
}

// LedgerServiceDesc describes the ledger service for grpc.Server.RegisterService
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IngestEvent", Handler: unaryHandler("IngestEvent", LedgerServiceServer.IngestEvent)},
		{MethodName: "ImportEvents", Handler: unaryHandler("ImportEvents", LedgerServiceServer.ImportEvents)},
		{MethodName: "RemoveTransaction", Handler: unaryHandler("RemoveTransaction", LedgerServiceServer.RemoveTransaction)},
		{MethodName: "RecalculatePortfolio", Handler: unaryHandler("RecalculatePortfolio", LedgerServiceServer.RecalculatePortfolio)},
		{MethodName: "GetPortfolio", Handler: unaryHandler("GetPortfolio", LedgerServiceServer.GetPortfolio)},
		{MethodName: "LinkTaxDocument", Handler: unaryHandler("LinkTaxDocument", LedgerServiceServer.LinkTaxDocument)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoFile,
}

// RegisterLedgerServiceServer registers srv on s
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// Client is a thin client for the ledger service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a ledger service client over an existing connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) IngestEvent(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "IngestEvent", req, opts...)
}

func (c *Client) ImportEvents(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ImportEvents", req, opts...)
}

func (c *Client) RemoveTransaction(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "RemoveTransaction", req, opts...)
}

func (c *Client) RecalculatePortfolio(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "RecalculatePortfolio", req, opts...)
}

func (c *Client) GetPortfolio(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetPortfolio", req, opts...)
}

func (c *Client) LinkTaxDocument(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "LinkTaxDocument", req, opts...)
}
