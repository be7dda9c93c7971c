package usecase

import (
	"context"
	"fmt"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/matching"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/domain/technician"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
)

const notApplicableReason = "task has no equipment requirement; matching not applicable"

type EligibleTechnicians struct {
	TaskID      uuid.UUID
	Applicable  bool
	Reason      string
	Candidates  []matching.Candidate
	EvaluatedAt time.Time
}

type MatchingUsecase interface {
	FindEligibleTechnicians(ctx context.Context, taskID uuid.UUID) (EligibleTechnicians, error)
}

type Matching struct {
	tasks       repository.TaskRepository
	technicians repository.TechnicianRepository
	workload    repository.WorkloadRepository
	weights     matching.Weights
	opts        Options
}

func NewMatchingUsecase(tasks repository.TaskRepository, technicians repository.TechnicianRepository, workload repository.WorkloadRepository, weights matching.Weights, opts Options) *Matching {
	return &Matching{tasks: tasks, technicians: technicians, workload: workload, weights: weights, opts: opts.withDefaults()}
}

func (u *Matching) FindEligibleTechnicians(ctx context.Context, taskID uuid.UUID) (EligibleTechnicians, error) {
	if taskID == uuid.Nil {
		return EligibleTechnicians{}, domain.Invalid("task_id", "required")
	}
	t, err := u.tasks.GetTask(ctx, taskID)
	if err != nil {
		return EligibleTechnicians{}, err
	}

	now := u.opts.now()
	out := EligibleTechnicians{TaskID: t.ID, EvaluatedAt: now, Candidates: []matching.Candidate{}}
	if t.RequiredEquipmentID == nil {
		out.Reason = notApplicableReason
		return out, nil
	}

	techs, err := u.technicians.ListTechnicians(ctx)
	if err != nil {
		return EligibleTechnicians{}, fmt.Errorf("list technicians: %w", err)
	}
	profiles, err := u.profiles(ctx, techs)
	if err != nil {
		return EligibleTechnicians{}, err
	}

	out.Applicable = true
	out.Candidates = matching.Rank(profiles, t.RequiredSkills, now, u.weights)
	return out, nil
}

// CheckEligibility applies the matching hard filter to one technician.
func (u *Matching) CheckEligibility(ctx context.Context, t task.Task, technicianID uuid.UUID) (bool, error) {
	tech, err := u.technicians.GetTechnician(ctx, technicianID)
	if err != nil {
		return false, err
	}
	profiles, err := u.profiles(ctx, []technician.Technician{tech})
	if err != nil {
		return false, err
	}
	if len(profiles) == 0 {
		return false, nil
	}
	_, ok := matching.Qualifies(profiles[0], t.RequiredSkills, u.opts.now())
	return ok, nil
}

func (u *Matching) profiles(ctx context.Context, techs []technician.Technician) ([]matching.Profile, error) {
	if len(techs) == 0 {
		return []matching.Profile{}, nil
	}
	ids := make([]uuid.UUID, 0, len(techs))
	for _, tech := range techs {
		ids = append(ids, tech.ID)
	}

	skills, err := u.technicians.ListTechnicianSkills(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list technician skills: %w", err)
	}
	open, err := u.workload.CountOpenTasks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count open tasks: %w", err)
	}

	out := make([]matching.Profile, 0, len(techs))
	for _, tech := range techs {
		held := skills[tech.ID]
		if held == nil {
			held = []skill.TechnicianSkill{}
		}
		out = append(out, matching.Profile{
			TechnicianID: tech.ID,
			Name:         tech.Name,
			Status:       tech.Status,
			Skills:       held,
			OpenTasks:    open[tech.ID],
		})
	}
	return out, nil
}
