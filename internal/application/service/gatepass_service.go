package service

import (
	"context"
	"fmt"

	"github.com/anandvel/dispatch-hub/internal/application/port"
	"github.com/anandvel/dispatch-hub/internal/domain/entity"
	"github.com/anandvel/dispatch-hub/internal/gatepass"
)

// GatepassService serves issued gatepasses and their QR wire form.
type GatepassService interface {
	Get(ctx context.Context, number string) (*entity.GatepassSummary, error)
	EncodeQR(ctx context.Context, number string) (string, error)
	DecodeQR(ctx context.Context, data string) gatepass.Decoded
}

type gatepassServiceImpl struct {
	repo   port.GatepassRepository
	logger Logger
}

// NewGatepassService creates a GatepassService.
func NewGatepassService(repo port.GatepassRepository, logger Logger) GatepassService {
	return &gatepassServiceImpl{repo: repo, logger: logger}
}

func (s *gatepassServiceImpl) Get(ctx context.Context, number string) (*entity.GatepassSummary, error) {
	summary, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load gatepass %s: %w", number, err)
	}
	return summary, nil
}

// EncodeQR loads a stored gatepass and produces its QR string, falling back
// through the size tiers as needed.
func (s *gatepassServiceImpl) EncodeQR(ctx context.Context, number string) (string, error) {
	summary, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return "", fmt.Errorf("load gatepass %s: %w", number, err)
	}
	encoded, err := gatepass.Encode(summary, gatepass.MinimalFromSummary(*summary))
	if err != nil {
		return "", fmt.Errorf("encode gatepass %s: %w", number, err)
	}
	return encoded, nil
}

// DecodeQR interprets a scanned string at the gate. When only a reference id
// comes back, the stored summary is attached if the id matches a known
// gatepass.
func (s *gatepassServiceImpl) DecodeQR(ctx context.Context, data string) gatepass.Decoded {
	decoded := gatepass.Decode(data)
	if decoded.Kind == gatepass.DecodeReference {
		if summary, err := s.repo.GetByNumber(ctx, decoded.Reference); err == nil {
			decoded.Payload = summary
		} else if port.CodeOf(err) != port.CodeNotFound {
			s.logger.Error("Failed to resolve gatepass reference", "reference", decoded.Reference, "error", err)
		}
	}
	return decoded
}
