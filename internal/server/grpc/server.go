// Package grpc exposes the verification API over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/packkeeper/internal/logging"
	pb "github.com/dmitrijs2005/packkeeper/internal/proto"
	"github.com/dmitrijs2005/packkeeper/internal/server/services"
	"google.golang.org/grpc"
)

// DocumentVerifier answers single-document hash lookups.
type DocumentVerifier interface {
	VerifyDocument(ctx context.Context, submissionID, documentHash string) (*services.DocumentLookup, error)
}

// PackVerifier summarizes and re-verifies whole submissions.
type PackVerifier interface {
	Summary(ctx context.Context, id string) (*services.Summary, error)
	Verify(ctx context.Context, id string) (*services.VerifyOutcome, error)
}

type GRPCServer struct {
	address   string
	documents DocumentVerifier
	packs     PackVerifier
	logger    logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, documents DocumentVerifier, packs PackVerifier) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		documents: documents,
		packs:     packs,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	pb.RegisterVerificationServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is canceled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
