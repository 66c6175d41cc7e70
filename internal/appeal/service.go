// Package appeal handles the ban-appeal workflow: end users submit an
// appeal against an active ban, operators resolve it, and approval lifts
// the ban.
package appeal

import (
	"errors"
	"time"

	"anonchat/backend/internal/bangate"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
)

var (
	ErrNoActiveBan     = errors.New("no active ban for this address")
	ErrAlreadyPending  = errors.New("a pending appeal already exists")
	ErrNotFound        = errors.New("appeal not found")
	ErrAlreadyResolved = errors.New("appeal already resolved")
	ErrBadStatus       = errors.New("status must be approved or rejected")
)

// Service implements the appeal business rules over storage.
type Service struct {
	Storage storage.Storage
	Gate    *bangate.Gate // optional; nil in the CLI
}

// NewService constructor.
func NewService(s storage.Storage, gate *bangate.Gate) *Service {
	return &Service{Storage: s, Gate: gate}
}

// Submit files a new appeal. The address must be banned and must not have
// a pending appeal already.
func (s *Service) Submit(ip, email, reason string) (*models.BanAppeal, error) {
	ban, err := s.Storage.GetBanByIP(ip)
	if err != nil {
		return nil, err
	}
	if ban == nil {
		return nil, ErrNoActiveBan
	}

	pending, err := s.Storage.GetPendingAppealByIP(ip)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrAlreadyPending
	}

	appeal := &models.BanAppeal{
		IP:          ip,
		Email:       email,
		Reason:      reason,
		Status:      models.AppealPending,
		SubmittedAt: time.Now().Unix(),
	}
	if err := s.Storage.CreateAppeal(appeal); err != nil {
		return nil, err
	}
	return appeal, nil
}

// Resolve moves a pending appeal to approved or rejected. Approval removes
// the corresponding ban and busts the ban caches.
func (s *Service) Resolve(id uint, status, notes, reviewer string) (*models.BanAppeal, error) {
	if status != models.AppealApproved && status != models.AppealRejected {
		return nil, ErrBadStatus
	}

	appeal, err := s.Storage.GetAppealByID(id)
	if err != nil {
		return nil, err
	}
	if appeal == nil {
		return nil, ErrNotFound
	}
	if appeal.Status != models.AppealPending {
		return nil, ErrAlreadyResolved
	}

	appeal.Status = status
	appeal.Notes = notes
	appeal.Reviewer = reviewer
	appeal.ReviewedAt = time.Now().Unix()
	if err := s.Storage.UpdateAppeal(appeal); err != nil {
		return nil, err
	}

	if status == models.AppealApproved {
		if err := s.Storage.DeleteBanByIP(appeal.IP); err != nil {
			logger.Log.Errorf("Failed to lift ban for %s after approval: %v", appeal.IP, err)
			return nil, err
		}
		if err := s.Storage.PublishBanUpdate(appeal.IP); err != nil {
			logger.Log.Warnf("Failed to publish ban update for %s: %v", appeal.IP, err)
		}
		if s.Gate != nil {
			s.Gate.Invalidate(appeal.IP)
		}
	}
	return appeal, nil
}
