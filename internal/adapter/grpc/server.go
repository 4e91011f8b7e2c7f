package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/simaogato/portfolio-ledger/internal/usecase/dashboard"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ingest"
)

// maxImportEvents bounds a single ImportEvents request
const maxImportEvents = 10000

// Server implements the LedgerService gRPC server
//
// Request fields:
//   - IngestEvent: owner_id, date, direction, movement, product, institution,
//     quantity, unit_price, declared_amount
//   - ImportEvents: events (list of IngestEvent requests)
//   - RemoveTransaction: owner_id, transaction_id
//   - RecalculatePortfolio, GetPortfolio: owner_id
//   - LinkTaxDocument: owner_id, transaction_id, tax_document_id
type Server struct {
	IngestService    *ingest.Service
	DashboardService *dashboard.DashboardService
}

var _ LedgerServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(ingestService *ingest.Service, dashboardService *dashboard.DashboardService) *Server {
	return &Server{
		IngestService:    ingestService,
		DashboardService: dashboardService,
	}
}

// IngestEvent handles the IngestEvent RPC
func (s *Server) IngestEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	event, err := eventFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	result, err := s.IngestService.Ingest(ctx, event)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(resultToMap(result))
}

// ImportEvents handles the ImportEvents RPC.
// Malformed entries are reported as failures like any rejected event.
func (s *Server) ImportEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	values := field(req, "events").GetListValue().GetValues()
	if len(values) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "events must not be empty")
	}
	if len(values) > maxImportEvents {
		return nil, status.Errorf(codes.InvalidArgument, "at most %d events per request", maxImportEvents)
	}

	events := make([]*domain.Event, len(values))
	decodeErrs := make(map[int]error)
	for i, v := range values {
		event, err := eventFromStruct(v.GetStructValue())
		if err != nil {
			decodeErrs[i] = err
			continue
		}
		events[i] = event
	}

	batch, err := s.IngestService.ImportBatch(ctx, events)
	if err != nil {
		return nil, mapError(err)
	}

	// Replace the generic nil-event failures with the decoding error
	for i := range batch.Failures {
		if decodeErr, ok := decodeErrs[batch.Failures[i].Index]; ok {
			batch.Failures[i].Err = decodeErr
		}
	}

	return toStruct(batchToMap(batch))
}

// RemoveTransaction handles the RemoveTransaction RPC
func (s *Server) RemoveTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := getOwnerID(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	txID, err := getUUID(req, "transaction_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	portfolio, err := s.IngestService.RemoveTransaction(ctx, ownerID, txID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"portfolio": portfolioToMap(portfolio)})
}

// RecalculatePortfolio handles the RecalculatePortfolio RPC
func (s *Server) RecalculatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := getOwnerID(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	portfolio, err := s.IngestService.Recalculate(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"portfolio": portfolioToMap(portfolio)})
}

// GetPortfolio handles the GetPortfolio RPC
func (s *Server) GetPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := getOwnerID(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	summary, err := s.DashboardService.GetSummary(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(summaryToMap(summary))
}

// LinkTaxDocument handles the LinkTaxDocument RPC
func (s *Server) LinkTaxDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := getOwnerID(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	txID, err := getUUID(req, "transaction_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	docID, err := getUUID(req, "tax_document_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if docID == uuid.Nil {
		return nil, status.Errorf(codes.InvalidArgument, "tax_document_id cannot be empty")
	}

	if err := s.IngestService.LinkTaxDocument(ctx, ownerID, txID, docID); err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"transaction_id": txID.String(), "tax_document_id": docID.String()})
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrOversell):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, domain.ErrPortfolioNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrInstitutionNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrConflict):
		return status.Errorf(codes.AlreadyExists, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
