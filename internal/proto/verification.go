// Package proto declares the packkeeper.v1.VerificationService gRPC
// contract. Messages are google.protobuf.Struct values so the service needs
// no generated code; field names match the JSON payloads of the HTTP API.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "packkeeper.v1.VerificationService"

const (
	VerifyDocumentMethod       = "/" + ServiceName + "/VerifyDocument"
	GetSubmissionSummaryMethod = "/" + ServiceName + "/GetSubmissionSummary"
	VerifySubmissionMethod     = "/" + ServiceName + "/VerifySubmission"
)

// VerificationServiceServer is the server API for VerificationService.
type VerificationServiceServer interface {
	VerifyDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSubmissionSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifySubmission(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(fullMethod string, call func(VerificationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(VerificationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(VerificationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// VerificationServiceDesc is the grpc.ServiceDesc for VerificationService.
var VerificationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VerificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "VerifyDocument",
			Handler:    unaryHandler(VerifyDocumentMethod, VerificationServiceServer.VerifyDocument),
		},
		{
			MethodName: "GetSubmissionSummary",
			Handler:    unaryHandler(GetSubmissionSummaryMethod, VerificationServiceServer.GetSubmissionSummary),
		},
		{
			MethodName: "VerifySubmission",
			Handler:    unaryHandler(VerifySubmissionMethod, VerificationServiceServer.VerifySubmission),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "packkeeper/v1/verification.proto",
}

func RegisterVerificationServiceServer(s grpc.ServiceRegistrar, srv VerificationServiceServer) {
	s.RegisterService(&VerificationServiceDesc, srv)
}

// VerificationServiceClient is the client API for VerificationService.
type VerificationServiceClient interface {
	VerifyDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSubmissionSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	VerifySubmission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type verificationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewVerificationServiceClient(cc grpc.ClientConnInterface) VerificationServiceClient {
	return &verificationServiceClient{cc: cc}
}

func (c *verificationServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verificationServiceClient) VerifyDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, VerifyDocumentMethod, in, opts)
}

func (c *verificationServiceClient) GetSubmissionSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetSubmissionSummaryMethod, in, opts)
}

func (c *verificationServiceClient) VerifySubmission(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, VerifySubmissionMethod, in, opts)
}

// StringField returns the string value of a request field, or "".
func StringField(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[name].GetStringValue()
}
