package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/settlement"
)

const serviceName = "barter.v1.Barter"

// Full method names
const (
	MethodGenerate     = "/" + serviceName + "/Generate"
	MethodGetInventory = "/" + serviceName + "/GetInventory"
	MethodPlaceBid     = "/" + serviceName + "/PlaceBid"
	MethodListBids     = "/" + serviceName + "/ListBids"
	MethodSettle       = "/" + serviceName + "/Settle"
)

// BarterServer is the server API for the barter.v1.Barter service
type BarterServer interface {
	Generate(context.Context, *ParticipantRequest) (*inventory.Inventory, error)
	GetInventory(context.Context, *ParticipantRequest) (*inventory.Inventory, error)
	PlaceBid(context.Context, *PlaceBidRequest) (*bidding.Bid, error)
	ListBids(context.Context, *ListBidsRequest) (*ListBidsResponse, error)
	Settle(context.Context, *SettleRequest) (*settlement.Result, error)
}

// UnimplementedBarterServer can be embedded to satisfy BarterServer
type UnimplementedBarterServer struct{}

func (UnimplementedBarterServer) Generate(context.Context, *ParticipantRequest) (*inventory.Inventory, error) {
	return nil, status.Error(codes.Unimplemented, "method Generate not implemented")
}

func (UnimplementedBarterServer) GetInventory(context.Context, *ParticipantRequest) (*inventory.Inventory, error) {
	return nil, status.Error(codes.Unimplemented, "method GetInventory not implemented")
}

func (UnimplementedBarterServer) PlaceBid(context.Context, *PlaceBidRequest) (*bidding.Bid, error) {
	return nil, status.Error(codes.Unimplemented, "method PlaceBid not implemented")
}

func (UnimplementedBarterServer) ListBids(context.Context, *ListBidsRequest) (*ListBidsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBids not implemented")
}

func (UnimplementedBarterServer) Settle(context.Context, *SettleRequest) (*settlement.Result, error) {
	return nil, status.Error(codes.Unimplemented, "method Settle not implemented")
}

// RegisterBarterServer registers srv on s
func RegisterBarterServer(s grpc.ServiceRegistrar, srv BarterServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req any](
	method string,
	call func(BarterServer, context.Context, *Req) (interface{}, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BarterServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(BarterServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for the barter.v1.Barter service
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BarterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Generate",
			Handler: unary(MethodGenerate, func(s BarterServer, ctx context.Context, in *ParticipantRequest) (interface{}, error) {
				return s.Generate(ctx, in)
			}),
		},
		{
			MethodName: "GetInventory",
			Handler: unary(MethodGetInventory, func(s BarterServer, ctx context.Context, in *ParticipantRequest) (interface{}, error) {
				return s.GetInventory(ctx, in)
			}),
		},
		{
			MethodName: "PlaceBid",
			Handler: unary(MethodPlaceBid, func(s BarterServer, ctx context.Context, in *PlaceBidRequest) (interface{}, error) {
				return s.PlaceBid(ctx, in)
			}),
		},
		{
			MethodName: "ListBids",
			Handler: unary(MethodListBids, func(s BarterServer, ctx context.Context, in *ListBidsRequest) (interface{}, error) {
				return s.ListBids(ctx, in)
			}),
		},
		{
			MethodName: "Settle",
			Handler: unary(MethodSettle, func(s BarterServer, ctx context.Context, in *SettleRequest) (interface{}, error) {
				return s.Settle(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}
