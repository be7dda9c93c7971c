package matching

import (
	"math"
	"sort"
	"time"

	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/technician"

	"github.com/google/uuid"
)

// freshnessHorizon caps the certification freshness bonus.
const freshnessHorizon = 365 * 24 * time.Hour

type Weights struct {
	Proficiency float64
	Workload    float64
	Freshness   float64
}

// DefaultWeights sum to 100 so scores land in [0, 100].
var DefaultWeights = Weights{Proficiency: 50, Workload: 35, Freshness: 15}

type Profile struct {
	TechnicianID uuid.UUID
	Name         string
	Status       technician.Status
	Skills       []skill.TechnicianSkill
	OpenTasks    int
}

type MatchedSkill struct {
	SkillID               uuid.UUID
	SkillCode             string
	Required              skill.Proficiency
	Held                  skill.Proficiency
	CertificationRequired bool
	IsCertified           bool
	CertificationExpiry   *time.Time
}

type Candidate struct {
	TechnicianID   uuid.UUID
	Name           string
	Status         technician.Status
	Score          float64
	OpenTasks      int
	SurplusScore   float64
	WorkloadScore  float64
	FreshnessScore float64
	MatchedSkills  []MatchedSkill
}

// Qualifies applies the hard eligibility gate. A technician either passes every
// requirement or is excluded; nothing here is down-ranked.
func Qualifies(p Profile, reqs []skill.Requirement, now time.Time) ([]MatchedSkill, bool) {
	if !p.Status.Assignable() {
		return nil, false
	}

	held := make(map[uuid.UUID]skill.TechnicianSkill, len(p.Skills))
	for _, ts := range p.Skills {
		if ts.SkillID == uuid.Nil {
			continue
		}
		held[ts.SkillID] = ts
	}

	matched := make([]MatchedSkill, 0, len(reqs))
	for _, r := range reqs {
		ts, ok := held[r.SkillID]
		if !ok {
			return nil, false
		}
		if ts.Proficiency < r.MinProficiency {
			return nil, false
		}
		if r.CertificationRequired && !ts.CertificationValid(now) {
			return nil, false
		}
		matched = append(matched, MatchedSkill{
			SkillID:               r.SkillID,
			SkillCode:             ts.SkillCode,
			Required:              r.MinProficiency,
			Held:                  ts.Proficiency,
			CertificationRequired: r.CertificationRequired,
			IsCertified:           ts.CertificationValid(now),
			CertificationExpiry:   ts.CertificationExpiry,
		})
	}
	return matched, true
}

// Rank filters profiles through Qualifies and orders the survivors by score
// desc, open tasks asc, technician id asc.
func Rank(profiles []Profile, reqs []skill.Requirement, now time.Time, w Weights) []Candidate {
	out := make([]Candidate, 0, len(profiles))
	for _, p := range profiles {
		matched, ok := Qualifies(p, reqs, now)
		if !ok {
			continue
		}

		surplus := surplusScore(matched)
		workload := workloadScore(p.OpenTasks)
		fresh := freshnessScore(matched, now)

		total := w.Proficiency*surplus + w.Workload*workload + w.Freshness*fresh
		out = append(out, Candidate{
			TechnicianID:   p.TechnicianID,
			Name:           p.Name,
			Status:         p.Status,
			Score:          round2(clamp(total, 0, 100)),
			OpenTasks:      p.OpenTasks,
			SurplusScore:   round2(surplus),
			WorkloadScore:  round2(workload),
			FreshnessScore: round2(fresh),
			MatchedSkills:  matched,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.OpenTasks != b.OpenTasks {
			return a.OpenTasks < b.OpenTasks
		}
		return a.TechnicianID.String() < b.TechnicianID.String()
	})
	return out
}

func surplusScore(matched []MatchedSkill) float64 {
	if len(matched) == 0 {
		return 0
	}
	span := float64(skill.Expert - skill.Beginner)
	sum := 0.0
	for _, m := range matched {
		sum += float64(m.Held-m.Required) / span
	}
	return clamp(sum/float64(len(matched)), 0, 1)
}

func workloadScore(open int) float64 {
	if open < 0 {
		open = 0
	}
	return 1 / float64(1+open)
}

func freshnessScore(matched []MatchedSkill, now time.Time) float64 {
	n := 0
	sum := 0.0
	for _, m := range matched {
		if !m.IsCertified {
			continue
		}
		n++
		if m.CertificationExpiry == nil {
			sum += 1
			continue
		}
		left := m.CertificationExpiry.Sub(now)
		sum += clamp(float64(left)/float64(freshnessHorizon), 0, 1)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
