package codec

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

// #region service-server
// ModelServiceServer is the server side of the model service.
type ModelServiceServer interface {
	Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// RegisterModelService exposes p over the model service contract.
func RegisterModelService(s grpc.ServiceRegistrar, p metric.Predictor) {
	s.RegisterService(&modelServiceDesc, &predictorServer{predictor: p})
}

var modelServiceDesc = grpc.ServiceDesc{
	ServiceName: "caterya.model.v1.ModelService",
	HandlerType: (*ModelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "caterya/model/v1/model.proto",
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServiceServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PredictMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ModelServiceServer).Predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-server

// #region predictor-server
type predictorServer struct {
	predictor metric.Predictor
}

func (s *predictorServer) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ds, err := DecodeDataset(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	preds, err := s.predictor.Predict(ctx, ds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(map[string]any{metric.FieldPredictions: floatsToList(preds)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion predictor-server
