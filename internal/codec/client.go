// Package codec connects the evaluator to models served over gRPC.
//
// The wire contract is caterya.model.v1.ModelService/Predict with
// google.protobuf.Struct request and response bodies: the request carries the
// dataset fields, the response a "predictions" list.
package codec

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

// PredictMethod is the full gRPC method name of the predict call.
const PredictMethod = "/caterya.model.v1.ModelService/Predict"

// #region service-client
// ModelServiceClient is the client side of the model service.
type ModelServiceClient interface {
	Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type modelServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewModelServiceClient binds the service to an existing connection.
func NewModelServiceClient(cc grpc.ClientConnInterface) ModelServiceClient {
	return &modelServiceClient{cc: cc}
}

func (c *modelServiceClient) Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PredictMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service-client

// #region client-struct
// Client is a remote model. It satisfies metric.Predictor, so it can be
// passed straight to the evaluator.
type Client struct {
	conn   *grpc.ClientConn
	client ModelServiceClient
	retry  RetryPolicy
}

// #endregion client-struct

// #region constructor
// NewClient connects to a model service at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, client: NewModelServiceClient(conn), retry: DefaultRetryPolicy()}, nil
}

// NewClientWithService creates a Client with an injected service
// implementation. Used for testing without a real gRPC connection.
func NewClientWithService(svc ModelServiceClient) *Client {
	return &Client{client: svc, retry: DefaultRetryPolicy()}
}

// WithRetry replaces the retry policy and returns c.
func (c *Client) WithRetry(p RetryPolicy) *Client {
	c.retry = p
	return c
}

// #endregion constructor

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #region predict
// Predict sends the dataset to the model service and returns one prediction
// per sample.
func (c *Client) Predict(ctx context.Context, ds *metric.Dataset) ([]float64, error) {
	req, err := EncodeDataset(ds)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("predict rpc: %w", err)
	}
	v, ok := resp.GetFields()[metric.FieldPredictions]
	if !ok {
		return nil, fmt.Errorf("predict rpc: %w: response has no predictions", metric.ErrMissingField)
	}
	preds, err := listToFloats(metric.FieldPredictions, v)
	if err != nil {
		return nil, fmt.Errorf("predict rpc: %w", err)
	}
	return preds, nil
}

func (c *Client) call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.client.Predict(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !c.retry.ShouldRetry(err, attempt) {
			return nil, err
		}
		timer := time.NewTimer(c.retry.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// #endregion predict

var _ metric.Predictor = (*Client)(nil)
