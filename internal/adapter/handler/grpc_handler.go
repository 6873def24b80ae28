package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/core/service"
	"github.com/rl1809/sales-api/internal/port"
)

const (
	transactionServiceName = "sales.v1.TransactionService"
	idempotencyMetadataKey = "idempotency-key"
)

type GetTransactionRequest struct {
	TransactionID int64 `json:"transactionId"`
}

type TransactionServiceServer interface {
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*service.TransactionView, error)
	GetTransaction(ctx context.Context, req *GetTransactionRequest) (*service.TransactionView, error)
}

type GRPCHandler struct {
	transactions *service.TransactionService
	cache        port.CacheRepository
	validate     *validatorv10.Validate
	logger       *log.Entry
}

func NewGRPCHandler(transactions *service.TransactionService, cache port.CacheRepository, logger *log.Entry) *GRPCHandler {
	if logger == nil {
		logger = log.WithField("component", "grpc")
	}
	return &GRPCHandler{
		transactions: transactions,
		cache:        cache,
		validate:     NewValidator(),
		logger:       logger,
	}
}

func (h *GRPCHandler) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*service.TransactionView, error) {
	if len(req.ArticleIDs) == 0 || len(req.Payments) == 0 {
		return nil, status.Error(codes.InvalidArgument, msgEmptyTransaction)
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	key := idempotencyKeyFrom(ctx)
	guarded := key != "" && h.cache != nil
	if guarded {
		claimed, err := h.cache.ClaimIdempotencyKey(ctx, key)
		if err != nil {
			h.logger.WithError(err).Error("claim idempotency key")
			return nil, status.Error(codes.Internal, msgTransactionFailed)
		}
		if !claimed {
			return h.replay(ctx, key)
		}
	}

	view, err := h.transactions.CreateTransaction(ctx, req.toInput())
	if err != nil {
		if guarded {
			releaseIdempotencyKey(ctx, h.cache, key, h.logger)
		}

		var unavailable *domain.ArticleUnavailableError
		if errors.As(err, &unavailable) {
			return nil, status.Errorf(codes.FailedPrecondition,
				"Article with ID %d is not available in inventory.", unavailable.ArticleID)
		}

		h.logger.WithError(err).WithField("customer_id", req.CustomerID).Error("create transaction")
		return nil, status.Error(codes.Internal, msgTransactionFailed)
	}

	if guarded {
		body, err := json.Marshal(view)
		if err != nil {
			h.logger.WithError(err).Warn("encode idempotent response")
			releaseIdempotencyKey(ctx, h.cache, key, h.logger)
		} else {
			storeIdempotentResponse(ctx, h.cache, key, body, h.logger)
		}
	}

	return &view, nil
}

func (h *GRPCHandler) replay(ctx context.Context, key string) (*service.TransactionView, error) {
	body, err := h.cache.GetIdempotentResponse(ctx, key)
	if err != nil {
		h.logger.WithError(err).Error("get idempotent response")
		return nil, status.Error(codes.Internal, msgTransactionFailed)
	}
	if body == nil {
		return nil, status.Error(codes.Aborted, msgRequestInFlight)
	}

	var view service.TransactionView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, status.Error(codes.Internal, msgTransactionFailed)
	}
	return &view, nil
}

func (h *GRPCHandler) GetTransaction(ctx context.Context, req *GetTransactionRequest) (*service.TransactionView, error) {
	if req.TransactionID <= 0 {
		return nil, status.Error(codes.InvalidArgument, msgInvalidID)
	}

	view, err := h.transactions.GetTransaction(ctx, req.TransactionID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, status.Error(codes.NotFound, notFound("Transaction", req.TransactionID))
	}
	if err != nil {
		h.logger.WithError(err).WithField("transaction_id", req.TransactionID).Error("get transaction")
		return nil, status.Error(codes.Internal, "Internal server error while retrieving the transaction.")
	}
	return &view, nil
}

func idempotencyKeyFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(idempotencyMetadataKey); len(values) > 0 {
		return values[0]
	}
	return ""
}

func RegisterTransactionServiceServer(s grpc.ServiceRegistrar, srv TransactionServiceServer) {
	s.RegisterService(&TransactionServiceDesc, srv)
}

var TransactionServiceDesc = grpc.ServiceDesc{
	ServiceName: transactionServiceName,
	HandlerType: (*TransactionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateTransaction", Handler: createTransactionHandler},
		{MethodName: "GetTransaction", Handler: getTransactionHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func createTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).CreateTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fmt.Sprintf("/%s/CreateTransaction", transactionServiceName),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransactionServiceServer).CreateTransaction(ctx, req.(*CreateTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTransactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).GetTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fmt.Sprintf("/%s/GetTransaction", transactionServiceName),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransactionServiceServer).GetTransaction(ctx, req.(*GetTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TransactionServiceClient calls the service with the JSON codec.
type TransactionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTransactionServiceClient(cc grpc.ClientConnInterface) *TransactionServiceClient {
	return &TransactionServiceClient{cc: cc}
}

func (c *TransactionServiceClient) CreateTransaction(ctx context.Context, in *CreateTransactionRequest, opts ...grpc.CallOption) (*service.TransactionView, error) {
	out := new(service.TransactionView)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+transactionServiceName+"/CreateTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TransactionServiceClient) GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpc.CallOption) (*service.TransactionView, error) {
	out := new(service.TransactionView)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+transactionServiceName+"/GetTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var _ TransactionServiceServer = (*GRPCHandler)(nil)
