package client

import (
	"context"
	"fmt"

	pb "github.com/dmitrijs2005/packkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.VerificationServiceClient
}

// NewGRPCClient connects lazily to endpointURL over plaintext. Extra dial
// options are appended after the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		endpointURL: endpointURL,
		conn:        conn,
		client:      pb.NewVerificationServiceClient(conn),
	}, nil
}

// LookupDocument asks whether documentHash belongs to the submission.
func (s *GRPCClient) LookupDocument(ctx context.Context, submissionID, documentHash string) (map[string]any, error) {
	return s.call(ctx, s.client.VerifyDocument, map[string]any{
		"submission_id": submissionID,
		"document_hash": documentHash,
	})
}

func (s *GRPCClient) Summary(ctx context.Context, submissionID string) (map[string]any, error) {
	return s.call(ctx, s.client.GetSubmissionSummary, map[string]any{"submission_id": submissionID})
}

// VerifySubmission re-verifies the stored archive on the server.
func (s *GRPCClient) VerifySubmission(ctx context.Context, submissionID string) (map[string]any, error) {
	return s.call(ctx, s.client.VerifySubmission, map[string]any{"submission_id": submissionID})
}

func (s *GRPCClient) call(
	ctx context.Context,
	method func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error),
	fields map[string]any,
) (map[string]any, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	resp, err := method(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.AsMap(), nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
