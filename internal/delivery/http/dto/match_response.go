package dto

import (
	"time"

	"lab-scheduler/internal/domain/matching"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
)

type MatchedSkillResponse struct {
	SkillID               uuid.UUID  `json:"skill_id"`
	SkillCode             string     `json:"skill_code"`
	Required              string     `json:"required"`
	Held                  string     `json:"held"`
	CertificationRequired bool       `json:"certification_required"`
	IsCertified           bool       `json:"is_certified"`
	CertificationExpiry   *time.Time `json:"certification_expiry"`
}

type CandidateResponse struct {
	TechnicianID   uuid.UUID              `json:"technician_id"`
	Name           string                 `json:"name"`
	Status         string                 `json:"status"`
	Score          float64                `json:"score"`
	OpenTasks      int                    `json:"open_tasks"`
	SurplusScore   float64                `json:"surplus_score"`
	WorkloadScore  float64                `json:"workload_score"`
	FreshnessScore float64                `json:"freshness_score"`
	MatchedSkills  []MatchedSkillResponse `json:"matched_skills"`
}

type EligibleTechniciansResponse struct {
	TaskID      uuid.UUID           `json:"task_id"`
	Applicable  bool                `json:"applicable"`
	Reason      string              `json:"reason,omitempty"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
	Candidates  []CandidateResponse `json:"candidates"`
}

func NewEligibleTechniciansResponse(r usecase.EligibleTechnicians) EligibleTechniciansResponse {
	out := EligibleTechniciansResponse{
		TaskID:      r.TaskID,
		Applicable:  r.Applicable,
		Reason:      r.Reason,
		EvaluatedAt: r.EvaluatedAt,
		Candidates:  make([]CandidateResponse, 0, len(r.Candidates)),
	}
	for _, c := range r.Candidates {
		out.Candidates = append(out.Candidates, newCandidateResponse(c))
	}
	return out
}

func newCandidateResponse(c matching.Candidate) CandidateResponse {
	skills := make([]MatchedSkillResponse, 0, len(c.MatchedSkills))
	for _, m := range c.MatchedSkills {
		skills = append(skills, MatchedSkillResponse{
			SkillID:               m.SkillID,
			SkillCode:             m.SkillCode,
			Required:              m.Required.String(),
			Held:                  m.Held.String(),
			CertificationRequired: m.CertificationRequired,
			IsCertified:           m.IsCertified,
			CertificationExpiry:   m.CertificationExpiry,
		})
	}
	return CandidateResponse{
		TechnicianID:   c.TechnicianID,
		Name:           c.Name,
		Status:         string(c.Status),
		Score:          c.Score,
		OpenTasks:      c.OpenTasks,
		SurplusScore:   c.SurplusScore,
		WorkloadScore:  c.WorkloadScore,
		FreshnessScore: c.FreshnessScore,
		MatchedSkills:  skills,
	}
}
