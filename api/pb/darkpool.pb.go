// Package pb provides gRPC types for the dark pool service.
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// DarkPoolServiceServer is the server API for DarkPoolService service.
type DarkPoolServiceServer interface {
	// Order operations
	SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error)

	// Query operations
	GetOrderStatus(context.Context, *GetOrderStatusRequest) (*GetOrderStatusResponse, error)
	GetPoolStatus(context.Context, *GetPoolStatusRequest) (*GetPoolStatusResponse, error)
}

// UnimplementedDarkPoolServiceServer can be embedded to have forward compatible implementations.
type UnimplementedDarkPoolServiceServer struct{}

func (UnimplementedDarkPoolServiceServer) SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitOrder not implemented")
}

func (UnimplementedDarkPoolServiceServer) CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CancelOrder not implemented")
}

func (UnimplementedDarkPoolServiceServer) GetOrderStatus(context.Context, *GetOrderStatusRequest) (*GetOrderStatusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetOrderStatus not implemented")
}

func (UnimplementedDarkPoolServiceServer) GetPoolStatus(context.Context, *GetPoolStatusRequest) (*GetPoolStatusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetPoolStatus not implemented")
}

// Request/Response message types
type SubmitOrderRequest struct {
	ClientId       string `json:"client_id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Quantity       string `json:"quantity"`
	LimitPrice     string `json:"limit_price"`
	PoolId         string `json:"pool_id"`
	PrivacyLevel   string `json:"privacy_level"`
	SettlementType string `json:"settlement_type"`
	MinFill        string `json:"min_fill"`
	Iceberg        bool   `json:"iceberg"`
	DisplayQty     string `json:"display_qty"`
	MaxSlippageBps int32  `json:"max_slippage_bps"`
}

type SubmitOrderResponse struct {
	OrderId           uint64 `json:"order_id"`
	Status            string `json:"status"`
	EstimatedFillSecs int64  `json:"estimated_fill_secs"`
}

type CancelOrderRequest struct {
	ClientId string `json:"client_id"`
	OrderId  uint64 `json:"order_id"`
}

type CancelOrderResponse struct {
	Order *OrderState `json:"order"`
}

type GetOrderStatusRequest struct {
	ClientId string `json:"client_id"`
	OrderId  uint64 `json:"order_id"`
}

type GetOrderStatusResponse struct {
	Order      *OrderState  `json:"order"`
	Executions []*Execution `json:"executions"`
}

type GetPoolStatusRequest struct {
	PoolId string `json:"pool_id"`
}

type GetPoolStatusResponse struct {
	PoolId           string `json:"pool_id"`
	Name             string `json:"name"`
	ActiveOrders     int32  `json:"active_orders"`
	BookDepth        int32  `json:"book_depth"`
	RestingNotional  string `json:"resting_notional"`
	Capacity         string `json:"capacity"`
	ParticipantCount int32  `json:"participant_count"`
}

type OrderState struct {
	OrderId   uint64                 `json:"order_id"`
	ClientId  string                 `json:"client_id"`
	PoolId    string                 `json:"pool_id"`
	Symbol    string                 `json:"symbol"`
	Side      string                 `json:"side"`
	Price     string                 `json:"price"`
	Quantity  string                 `json:"quantity"`
	Filled    string                 `json:"filled"`
	Remaining string                 `json:"remaining"`
	Status    string                 `json:"status"`
	Iceberg   bool                   `json:"iceberg"`
	CreatedAt *timestamppb.Timestamp `json:"created_at"`
	UpdatedAt *timestamppb.Timestamp `json:"updated_at"`
}

type Execution struct {
	ExecutionId  uint64                 `json:"execution_id"`
	TakerOrderId uint64                 `json:"taker_order_id"`
	MakerOrderId uint64                 `json:"maker_order_id"`
	Quantity     string                 `json:"quantity"`
	Price        string                 `json:"price"`
	MakerFee     string                 `json:"maker_fee"`
	TakerFee     string                 `json:"taker_fee"`
	ExecutedAt   *timestamppb.Timestamp `json:"executed_at"`
}

// RegisterDarkPoolServiceServer registers the server
func RegisterDarkPoolServiceServer(s grpc.ServiceRegistrar, srv DarkPoolServiceServer) {
	s.RegisterService(&DarkPoolService_ServiceDesc, srv)
}

func _DarkPoolService_SubmitOrder_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DarkPoolServiceServer).SubmitOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/umbra.DarkPoolService/SubmitOrder",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DarkPoolServiceServer).SubmitOrder(ctx, req.(*SubmitOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _DarkPoolService_CancelOrder_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DarkPoolServiceServer).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/umbra.DarkPoolService/CancelOrder",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DarkPoolServiceServer).CancelOrder(ctx, req.(*CancelOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _DarkPoolService_GetOrderStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DarkPoolServiceServer).GetOrderStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/umbra.DarkPoolService/GetOrderStatus",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DarkPoolServiceServer).GetOrderStatus(ctx, req.(*GetOrderStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _DarkPoolService_GetPoolStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetPoolStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DarkPoolServiceServer).GetPoolStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/umbra.DarkPoolService/GetPoolStatus",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DarkPoolServiceServer).GetPoolStatus(ctx, req.(*GetPoolStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// DarkPoolService_ServiceDesc is the grpc.ServiceDesc for DarkPoolService service.
// It's only intended for direct use with grpc.RegisterService.
var DarkPoolService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "umbra.DarkPoolService",
	HandlerType: (*DarkPoolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitOrder",
			Handler:    _DarkPoolService_SubmitOrder_Handler,
		},
		{
			MethodName: "CancelOrder",
			Handler:    _DarkPoolService_CancelOrder_Handler,
		},
		{
			MethodName: "GetOrderStatus",
			Handler:    _DarkPoolService_GetOrderStatus_Handler,
		},
		{
			MethodName: "GetPoolStatus",
			Handler:    _DarkPoolService_GetPoolStatus_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/darkpool.proto",
}
