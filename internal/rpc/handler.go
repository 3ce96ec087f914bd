package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/settlement"
	"github.com/Imellstorm/wptest/internal/trade"
	"github.com/Imellstorm/wptest/internal/types"
)

// kindTrailer carries the domain error kind next to the gRPC status
const kindTrailer = "x-error-kind"

// Handler serves barter.v1.Barter from the trade service
type Handler struct {
	UnimplementedBarterServer
	service *trade.Service
}

var _ BarterServer = (*Handler)(nil)

func NewHandler(service *trade.Service) *Handler {
	return &Handler{service: service}
}

// NewServer returns a gRPC server with the barter service and request
// logging installed
func NewServer(service *trade.Service, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor))
	srv := grpc.NewServer(opts...)
	RegisterBarterServer(srv, NewHandler(service))
	return srv
}

func (h *Handler) Generate(ctx context.Context, req *ParticipantRequest) (*inventory.Inventory, error) {
	inv, err := h.service.Generate(ctx, req.Name)
	return inv, toStatus(ctx, err)
}

func (h *Handler) GetInventory(ctx context.Context, req *ParticipantRequest) (*inventory.Inventory, error) {
	inv, err := h.service.GetInventory(ctx, req.Name)
	return inv, toStatus(ctx, err)
}

func (h *Handler) PlaceBid(ctx context.Context, req *PlaceBidRequest) (*bidding.Bid, error) {
	bid, err := h.service.PlaceBid(ctx, req.Name, req.Items)
	return bid, toStatus(ctx, err)
}

func (h *Handler) ListBids(ctx context.Context, _ *ListBidsRequest) (*ListBidsResponse, error) {
	bids, err := h.service.ListBids(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListBidsResponse{Bids: bids}, nil
}

func (h *Handler) Settle(ctx context.Context, req *SettleRequest) (*settlement.Result, error) {
	result, err := h.service.Settle(ctx, req.Bidder, req.Counterparty, req.Items)
	return result, toStatus(ctx, err)
}

// CodeFor maps a domain error kind to its gRPC code
func CodeFor(kind types.ErrorKind) codes.Code {
	switch kind {
	case types.KindUnknownParticipant, types.KindNoInventory, types.KindNoBid:
		return codes.NotFound
	case types.KindAlreadyExists, types.KindDuplicateBid:
		return codes.AlreadyExists
	case types.KindMalformedInput:
		return codes.InvalidArgument
	case types.KindInvalidCredentials:
		return codes.Unauthenticated
	case types.KindCounterpartyHasOpenBid, types.KindUnknownItem, types.KindInsufficientQuantity, types.KindOfferTooLow:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *types.Error
	if !errors.As(err, &domainErr) {
		log.Error().Err(err).Msg("rpc request failed")
		return status.Error(codes.Internal, "an unexpected error occurred")
	}

	// the trailer only fails to attach outside a server call
	_ = grpc.SetTrailer(ctx, metadata.Pairs(kindTrailer, string(domainErr.Kind)))
	return status.Error(CodeFor(domainErr.Kind), domainErr.Message)
}

// LoggingInterceptor logs every unary call with its code and latency
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	event := log.Info()
	if code == codes.Internal {
		event = log.Error()
	}
	event.
		Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("latency", time.Since(start)).
		Msg("rpc")

	return resp, err
}
