package payout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
)

// VerifyMethod checks a payout destination against the employer's
// provider and marks it verified when the account resolves. The manual
// provider accepts every destination, leaving verification to the
// operator.
func (s *Service) VerifyMethod(ctx context.Context, employerID, methodID uuid.UUID) (*domain.Method, error) {
	m, err := s.uow.Methods().Get(ctx, methodID)
	if err != nil {
		return nil, err
	}

	settings, err := s.uow.Settings().ForEmployer(ctx, employerID)
	if err != nil {
		return nil, err
	}
	prov, err := s.providers.Get(settings.Effective(domain.CategoryPayroll))
	if err != nil {
		return nil, err
	}

	var creds *provider.Credentials
	if !prov.IsManual() {
		conn, err := s.uow.Connections().ActiveForEmployer(ctx, employerID)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, domain.ErrNoActiveConnection
		}
		creds, err = s.decryptor.Decrypt(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("decrypt credentials: %w", err)
		}
	}

	resp, err := prov.LookupAccount(ctx, creds, &provider.LookupRequest{
		Destination: provider.DestinationFromMethod(m),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, fmt.Errorf("destination did not resolve at provider %s", prov.Name())
	}

	m.Verified = true
	if resp.HolderName != "" {
		m.HolderName = resp.HolderName
	}
	if err := s.uow.Methods().Update(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("method verified", "method_id", m.ID, "provider", prov.Name())
	return m, nil
}
