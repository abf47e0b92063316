package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	pb "github.com/dmitrijs2005/packkeeper/internal/proto"
	"github.com/dmitrijs2005/packkeeper/internal/server/payload"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ pb.VerificationServiceServer = (*GRPCServer)(nil)

func (s *GRPCServer) VerifyDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := pb.StringField(req, "submission_id")
	hash := pb.StringField(req, "document_hash")
	if id == "" || hash == "" {
		return nil, status.Error(codes.InvalidArgument, "submission_id and document_hash are required")
	}

	result, err := s.documents.VerifyDocument(ctx, id, hash)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, payload.Lookup(result))
}

func (s *GRPCServer) GetSubmissionSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := pb.StringField(req, "submission_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "submission_id is required")
	}

	summary, err := s.packs.Summary(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, payload.Summary(summary))
}

func (s *GRPCServer) VerifySubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := pb.StringField(req, "submission_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "submission_id is required")
	}

	outcome, err := s.packs.Verify(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.reply(ctx, payload.Verification(outcome))
}

func (s *GRPCServer) reply(ctx context.Context, m payload.Map) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error(ctx, "failed to encode response", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus maps service errors to gRPC codes. Internal details are logged,
// not returned.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, err.Error())
		return status.Error(codes.Internal, "internal error")
	}
}
