package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// AgentInfo — минимальные сведения о внешнем агенте, копируемые
// в кандидата при промоции. Регистрация и KYC агента — вне этого сервиса.
type AgentInfo struct {
	AgentID  uint
	FullName string
	Email    string
}

// CandidateService отвечает за ленивую промоцию Agent→Candidate
type CandidateService struct {
	candidateRepo repository.CandidateRepository
}

// NewCandidateService создает новый сервис кандидатов
func NewCandidateService(candidateRepo repository.CandidateRepository) *CandidateService {
	return &CandidateService{candidateRepo: candidateRepo}
}

// GetOrCreateByAgent возвращает кандидата для агента, создавая его при первом
// взаимодействии с ассессментом. Идентификационные поля копируются один раз.
func (s *CandidateService) GetOrCreateByAgent(info AgentInfo) (*entity.Candidate, error) {
	candidate, err := s.candidateRepo.GetByAgentID(info.AgentID)
	if err == nil {
		return candidate, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	candidate = &entity.Candidate{
		AgentID:  info.AgentID,
		FullName: info.FullName,
		Email:    info.Email,
	}
	if err := s.candidateRepo.Create(candidate); err != nil {
		return nil, fmt.Errorf("не удалось создать кандидата для агента #%d: %w", info.AgentID, err)
	}

	log.Printf("[CandidateService] Агент #%d промотирован в кандидата #%d", info.AgentID, candidate.ID)
	return candidate, nil
}

// GetByAgentID возвращает кандидата по ID агента
func (s *CandidateService) GetByAgentID(agentID uint) (*entity.Candidate, error) {
	return s.candidateRepo.GetByAgentID(agentID)
}
