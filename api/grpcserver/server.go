// Package grpcserver adapts the order service to the gRPC surface,
// translating domain errors into status codes.
package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"umbra/api/pb"
	"umbra/domain/book"
	"umbra/domain/ledger"
	"umbra/domain/venue"
	"umbra/service"
)

// Server adapts OrderService to gRPC.
type Server struct {
	pb.UnimplementedDarkPoolServiceServer
	svc *service.OrderService
	log *slog.Logger
}

func NewServer(svc *service.OrderService, log *slog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// -------------------- Commands --------------------

func (s *Server) SubmitOrder(ctx context.Context, req *pb.SubmitOrderRequest) (*pb.SubmitOrderResponse, error) {
	side, err := parseSide(req.Side)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	qty, err := parseDecimal(req.Quantity, "quantity")
	if err != nil {
		return nil, err
	}
	price, err := parseDecimal(req.LimitPrice, "limit_price")
	if err != nil {
		return nil, err
	}
	minFill, err := parseOptionalDecimal(req.MinFill, "min_fill")
	if err != nil {
		return nil, err
	}
	displayQty, err := parseOptionalDecimal(req.DisplayQty, "display_qty")
	if err != nil {
		return nil, err
	}

	acc, serr := s.svc.SubmitOrder(ctx, service.OrderRequest{
		ClientID:       req.ClientId,
		Symbol:         req.Symbol,
		Side:           side,
		Qty:            qty,
		Price:          price,
		PoolID:         req.PoolId,
		Privacy:        req.PrivacyLevel,
		Settlement:     req.SettlementType,
		MinFill:        minFill,
		Iceberg:        req.Iceberg,
		DisplayQty:     displayQty,
		MaxSlippageBps: int(req.MaxSlippageBps),
	})
	if serr != nil {
		s.log.Debug("submit rejected", "client", req.ClientId, "err", serr)
		return nil, toStatus(serr)
	}

	return &pb.SubmitOrderResponse{
		OrderId:           acc.OrderID,
		Status:            acc.Status.String(),
		EstimatedFillSecs: int64(acc.EstimatedFill.Seconds()),
	}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *pb.CancelOrderRequest) (*pb.CancelOrderResponse, error) {
	view, err := s.svc.CancelOrder(ctx, req.ClientId, req.OrderId)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.CancelOrderResponse{Order: fromView(view)}, nil
}

// -------------------- Queries --------------------

func (s *Server) GetOrderStatus(ctx context.Context, req *pb.GetOrderStatusRequest) (*pb.GetOrderStatusResponse, error) {
	view, execs, err := s.svc.GetOrderStatus(ctx, req.ClientId, req.OrderId)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &pb.GetOrderStatusResponse{
		Order:      fromView(view),
		Executions: make([]*pb.Execution, 0, len(execs)),
	}
	for _, e := range execs {
		resp.Executions = append(resp.Executions, fromExecution(e))
	}
	return resp, nil
}

func (s *Server) GetPoolStatus(ctx context.Context, req *pb.GetPoolStatusRequest) (*pb.GetPoolStatusResponse, error) {
	ps, err := s.svc.GetPoolStatus(ctx, req.PoolId)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.GetPoolStatusResponse{
		PoolId:           ps.PoolID,
		Name:             ps.Name,
		ActiveOrders:     int32(ps.ActiveOrders),
		BookDepth:        int32(ps.BookDepth),
		RestingNotional:  ps.RestingNotional.String(),
		Capacity:         ps.Capacity.String(),
		ParticipantCount: int32(ps.ParticipantCount),
	}, nil
}

// -------------------- Converters --------------------

func parseSide(s string) (book.Side, error) {
	switch strings.ToUpper(s) {
	case "BUY", "BID":
		return book.Buy, nil
	case "SELL", "ASK":
		return book.Sell, nil
	default:
		return book.Buy, errors.New("side must be BUY or SELL")
	}
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s: not a decimal: %q", field, s)
	}
	return d, nil
}

func parseOptionalDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(s, field)
}

func fromView(v *service.OrderView) *pb.OrderState {
	return &pb.OrderState{
		OrderId:   v.ID,
		ClientId:  v.ClientID,
		PoolId:    v.PoolID,
		Symbol:    v.Symbol,
		Side:      v.Side.String(),
		Price:     v.Price.String(),
		Quantity:  v.Qty.String(),
		Filled:    v.Filled.String(),
		Remaining: v.Remaining.String(),
		Status:    v.Status.String(),
		Iceberg:   v.Iceberg,
		CreatedAt: timestamppb.New(v.CreatedAt),
		UpdatedAt: timestamppb.New(v.UpdatedAt),
	}
}

func fromExecution(e *ledger.Execution) *pb.Execution {
	return &pb.Execution{
		ExecutionId:  e.ID,
		TakerOrderId: e.TakerOrderID,
		MakerOrderId: e.MakerOrderID,
		Quantity:     e.Qty.String(),
		Price:        e.Price.String(),
		MakerFee:     e.MakerFee.String(),
		TakerFee:     e.TakerFee.String(),
		ExecutedAt:   timestamppb.New(e.ExecutedAt),
	}
}

// toStatus maps service failures onto gRPC codes.
func toStatus(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, venue.ErrPoolNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrTerminalState):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
