package skill

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Proficiency int

const (
	Beginner Proficiency = iota + 1
	Intermediate
	Advanced
	Expert
)

var proficiencyNames = map[Proficiency]string{
	Beginner:     "beginner",
	Intermediate: "intermediate",
	Advanced:     "advanced",
	Expert:       "expert",
}

func (p Proficiency) String() string {
	if s, ok := proficiencyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("proficiency(%d)", int(p))
}

func (p Proficiency) Valid() bool {
	return p >= Beginner && p <= Expert
}

func ParseProficiency(s string) (Proficiency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range proficiencyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown proficiency level %q", s)
}

func (p Proficiency) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid proficiency %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Proficiency) UnmarshalText(b []byte) error {
	v, err := ParseProficiency(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type Skill struct {
	ID                        uuid.UUID
	Code                      string
	Name                      string
	Category                  string
	RequiresCertification     bool
	CertificationValidityDays *int
	CreatedAt                 time.Time
}

// TechnicianSkill is owned by the skill-assessment workflow; this service only reads it.
type TechnicianSkill struct {
	TechnicianID        uuid.UUID
	SkillID             uuid.UUID
	SkillCode           string
	Proficiency         Proficiency
	IsCertified         bool
	CertificationExpiry *time.Time
}

// CertificationValid reports whether the certification is usable at now.
// An expiry on the same instant as now counts as expired.
func (ts TechnicianSkill) CertificationValid(now time.Time) bool {
	if !ts.IsCertified {
		return false
	}
	if ts.CertificationExpiry == nil {
		return true
	}
	return ts.CertificationExpiry.After(now)
}

// Requirement is one entry of a task's ordered skill list.
type Requirement struct {
	SkillID               uuid.UUID
	MinProficiency        Proficiency
	CertificationRequired bool
}
