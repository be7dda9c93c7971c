package matching

import (
	"testing"
	"time"

	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/technician"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func held(id uuid.UUID, p skill.Proficiency) skill.TechnicianSkill {
	return skill.TechnicianSkill{SkillID: id, Proficiency: p}
}

func certified(id uuid.UUID, p skill.Proficiency, expiry *time.Time) skill.TechnicianSkill {
	return skill.TechnicianSkill{SkillID: id, Proficiency: p, IsCertified: true, CertificationExpiry: expiry}
}

func TestQualifies_ProficiencyGate(t *testing.T) {
	pcr := uuid.New()
	reqs := []skill.Requirement{{SkillID: pcr, MinProficiency: skill.Advanced}}

	_, ok := Qualifies(Profile{Status: technician.StatusAvailable, Skills: []skill.TechnicianSkill{held(pcr, skill.Intermediate)}}, reqs, now)
	assert.False(t, ok)

	matched, ok := Qualifies(Profile{Status: technician.StatusAvailable, Skills: []skill.TechnicianSkill{held(pcr, skill.Expert)}}, reqs, now)
	require.True(t, ok)
	require.Len(t, matched, 1)
	assert.Equal(t, skill.Expert, matched[0].Held)
	assert.Equal(t, skill.Advanced, matched[0].Required)

	_, ok = Qualifies(Profile{Status: technician.StatusAvailable}, reqs, now)
	assert.False(t, ok, "missing skill")
}

func TestQualifies_Certification(t *testing.T) {
	hplc := uuid.New()
	reqs := []skill.Requirement{{SkillID: hplc, MinProficiency: skill.Beginner, CertificationRequired: true}}

	cases := []struct {
		name string
		ts   skill.TechnicianSkill
		want bool
	}{
		{"not certified", held(hplc, skill.Expert), false},
		{"expired", certified(hplc, skill.Expert, timePtr(now.Add(-time.Hour))), false},
		{"expires now", certified(hplc, skill.Expert, timePtr(now)), false},
		{"valid", certified(hplc, skill.Expert, timePtr(now.Add(time.Hour))), true},
		{"no expiry", certified(hplc, skill.Expert, nil), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Qualifies(Profile{Status: technician.StatusAvailable, Skills: []skill.TechnicianSkill{tc.ts}}, reqs, now)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestQualifies_Status(t *testing.T) {
	pcr := uuid.New()
	reqs := []skill.Requirement{{SkillID: pcr, MinProficiency: skill.Beginner}}
	skills := []skill.TechnicianSkill{held(pcr, skill.Expert)}

	for _, st := range []technician.Status{technician.StatusAvailable, technician.StatusBusy, technician.StatusBorrowed} {
		_, ok := Qualifies(Profile{Status: st, Skills: skills}, reqs, now)
		assert.True(t, ok, st)
	}
	_, ok := Qualifies(Profile{Status: technician.StatusOnLeave, Skills: skills}, reqs, now)
	assert.False(t, ok)
}

func TestRank_ScoreComponents(t *testing.T) {
	pcr, hplc := uuid.New(), uuid.New()
	reqs := []skill.Requirement{
		{SkillID: pcr, MinProficiency: skill.Beginner},
		{SkillID: hplc, MinProficiency: skill.Advanced, CertificationRequired: true},
	}
	p := Profile{
		TechnicianID: uuid.New(),
		Status:       technician.StatusAvailable,
		OpenTasks:    1,
		Skills: []skill.TechnicianSkill{
			held(pcr, skill.Expert),
			certified(hplc, skill.Advanced, nil),
		},
	}

	got := Rank([]Profile{p}, reqs, now, DefaultWeights)
	require.Len(t, got, 1)
	c := got[0]
	// surplus: ((4-1)/3 + (3-3)/3) / 2 = 0.5; workload: 1/2; freshness: 1.
	assert.Equal(t, 0.5, c.SurplusScore)
	assert.Equal(t, 0.5, c.WorkloadScore)
	assert.Equal(t, 1.0, c.FreshnessScore)
	assert.Equal(t, 50*0.5+35*0.5+15*1.0, c.Score)
}

func TestRank_TieBreaks(t *testing.T) {
	pcr := uuid.New()
	reqs := []skill.Requirement{{SkillID: pcr, MinProficiency: skill.Beginner}}
	skills := []skill.TechnicianSkill{held(pcr, skill.Beginner)}

	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	got := Rank([]Profile{
		{TechnicianID: c, Status: technician.StatusAvailable, Skills: skills},
		{TechnicianID: b, Status: technician.StatusAvailable, Skills: skills},
		{TechnicianID: a, Status: technician.StatusAvailable, Skills: skills, OpenTasks: 2},
		{TechnicianID: uuid.New(), Status: technician.StatusOnLeave, Skills: skills},
	}, reqs, now, DefaultWeights)

	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{b, c, a}, []uuid.UUID{got[0].TechnicianID, got[1].TechnicianID, got[2].TechnicianID})
}

func TestRank_EmptyRequirementsAdmitsEveryAssignable(t *testing.T) {
	got := Rank([]Profile{
		{TechnicianID: uuid.New(), Status: technician.StatusBusy},
		{TechnicianID: uuid.New(), Status: technician.StatusOnLeave},
	}, nil, now, DefaultWeights)

	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].SurplusScore)
	assert.Equal(t, 35.0, got[0].Score)
}

func TestRank_ScoresBoundedAndOrdered(t *testing.T) {
	pcr := uuid.New()
	reqs := []skill.Requirement{{SkillID: pcr, MinProficiency: skill.Beginner, CertificationRequired: true}}

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		profiles := make([]Profile, 0, n)
		for i := 0; i < n; i++ {
			prof := skill.Proficiency(rapid.IntRange(1, 4).Draw(rt, "proficiency"))
			days := rapid.IntRange(-30, 800).Draw(rt, "days")
			profiles = append(profiles, Profile{
				TechnicianID: uuid.New(),
				Status:       technician.StatusAvailable,
				OpenTasks:    rapid.IntRange(0, 10).Draw(rt, "open"),
				Skills:       []skill.TechnicianSkill{certified(pcr, prof, timePtr(now.AddDate(0, 0, days)))},
			})
		}

		got := Rank(profiles, reqs, now, DefaultWeights)
		for i, c := range got {
			if c.Score < 0 || c.Score > 100 {
				rt.Fatalf("score %v out of range", c.Score)
			}
			if i > 0 && got[i-1].Score < c.Score {
				rt.Fatalf("candidates not sorted by score: %v before %v", got[i-1].Score, c.Score)
			}
		}
	})
}
