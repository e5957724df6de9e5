package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/caterya/internal/codec"
	"github.com/danielpatrickdp/caterya/internal/evaluator"
)

// gRPC method names of the scoring service.
const (
	ScoringServiceName = "caterya.scoring.v1.ScoringService"
	EvaluateMethod     = "/" + ScoringServiceName + "/Evaluate"
	ListMetricsMethod  = "/" + ScoringServiceName + "/ListMetrics"
)

// #region grpc-server
// GRPCServer builds a gRPC server carrying the scoring service and the
// standard health service.
func (s *Server) GRPCServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(s.logger)))
	srv.RegisterService(&scoringServiceDesc, &scoringServer{s: s})

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus(ScoringServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		logger.Debug("rpc call", "method", info.FullMethod)
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Error("rpc error", "method", info.FullMethod, "error", err)
		}
		return resp, err
	}
}

// #endregion grpc-server

// #region service-desc
// ScoringServiceServer is the server side of the scoring service.
type ScoringServiceServer interface {
	Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListMetrics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var scoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ScoringServiceName,
	HandlerType: (*ScoringServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: unaryHandler(EvaluateMethod, ScoringServiceServer.Evaluate)},
		{MethodName: "ListMetrics", Handler: unaryHandler(ListMetricsMethod, ScoringServiceServer.ListMetrics)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "caterya/scoring/v1/scoring.proto",
}

func unaryHandler(method string, call func(ScoringServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScoringServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScoringServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion service-desc

// #region scoring-server
type scoringServer struct {
	s *Server
}

// Evaluate expects {"dataset": {...}, "pillars": [...], "metrics": [...],
// "options": {...}} and answers with the canonical results document.
func (g *scoringServer) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	dsField := fields["dataset"].GetStructValue()
	if dsField == nil {
		return nil, status.Error(codes.InvalidArgument, "dataset is required")
	}
	ds, err := codec.DecodeDataset(dsField)
	if err != nil {
		return nil, grpcError(err)
	}

	req := evaluator.Request{Options: fields["options"].GetStructValue().AsMap()}
	if v, ok := fields["pillars"]; ok {
		if req.Pillars, err = stringList("pillars", v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields["metrics"]; ok {
		if req.Metrics, err = stringList("metrics", v); err != nil {
			return nil, err
		}
	}

	res, err := g.s.eval.Evaluate(ctx, g.s.model, ds, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(res.Canonical())
}

// ListMetrics answers with {"metrics": [MetricInfo...]}.
func (g *scoringServer) ListMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	all, err := g.s.catalog()
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]any{"metrics": all})
}

// #endregion scoring-server

// #region helpers
func stringList(name string, v *structpb.Value) ([]string, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

// toStruct converts any JSON-encodable value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func grpcError(err error) error {
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	httpStatus, _ := classify(err)
	code := codes.Internal
	switch httpStatus {
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusUnprocessableEntity:
		code = codes.FailedPrecondition
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	case http.StatusGatewayTimeout:
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}

// #endregion helpers
