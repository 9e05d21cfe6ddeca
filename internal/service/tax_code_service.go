package service

import (
	"context"

	"taxcore/internal/model"
	"taxcore/internal/repository"
	"taxcore/internal/taxcode"
	"taxcore/pkg/logger"

	"go.uber.org/zap"
)

type ManualTaxCodeRequest struct {
	TaxCode string `json:"tax_code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

type MatchRequest struct {
	InputName      string `json:"input_name" binding:"required"`
	RegisteredName string `json:"registered_name" binding:"required"`
}

type TaxCodeService interface {
	Lookup(ctx context.Context, taxCode, name string) taxcode.LookupResult
	Match(req MatchRequest) taxcode.MatchResult
	RegisterManual(ctx context.Context, req ManualTaxCodeRequest, userID string) (taxcode.LookupResult, error)
}

type taxCodeService struct {
	codes     *taxcode.Service
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewTaxCodeService(codes *taxcode.Service, auditRepo repository.AuditRepository, log *zap.Logger) TaxCodeService {
	return &taxCodeService{codes: codes, auditRepo: auditRepo, logger: logger.OrNop(log)}
}

// Lookup resolves taxCode and scores name against it when name is set.
func (s *taxCodeService) Lookup(ctx context.Context, taxCode, name string) taxcode.LookupResult {
	return s.codes.Verify(ctx, taxCode, name)
}

func (s *taxCodeService) Match(req MatchRequest) taxcode.MatchResult {
	return s.codes.Match(req.InputName, req.RegisteredName)
}

func (s *taxCodeService) RegisterManual(ctx context.Context, req ManualTaxCodeRequest, userID string) (taxcode.LookupResult, error) {
	res, err := s.codes.RegisterManual(ctx, req.TaxCode, req.Name, req.Address)
	if err != nil {
		return taxcode.LookupResult{}, err
	}

	if s.auditRepo == nil {
		return res, nil
	}
	// Best-effort audit log; the registration itself already succeeded.
	entry := newAuditEntry(userID, model.ActionManualTaxCode, res.TaxCode, res.Name, req)
	if auditErr := s.auditRepo.Log(ctx, entry); auditErr != nil {
		s.logger.Warn("failed to write manual tax code audit log",
			zap.String("tax_code", res.TaxCode),
			zap.Error(auditErr))
	}
	return res, nil
}
