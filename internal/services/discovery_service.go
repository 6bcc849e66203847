package services

import (
	"context"
	"sort"
	"strings"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type TeacherLister interface {
	ListOnboarded(ctx context.Context) ([]models.TeacherProfile, error)
}

type DiscoveryFilter struct {
	Sport    string
	MaxPrice *float64
	Limit    int
}

// DiscoveryService ranks onboarded teachers for a student. Scoring favors
// sport overlap, then track record, then staying under the student's budget;
// ties break on rating.
type DiscoveryService struct {
	teacherRepo TeacherLister
}

func NewDiscoveryService(teacherRepo TeacherLister) *DiscoveryService {
	return &DiscoveryService{teacherRepo: teacherRepo}
}

func (s *DiscoveryService) MatchTeachers(
	ctx context.Context,
	studentProfile *models.StudentProfile,
	filter DiscoveryFilter,
) ([]models.TeacherWithScore, error) {
	teachers, err := s.teacherRepo.ListOnboarded(ctx)
	if err != nil {
		return nil, err
	}

	sportFilter := normalizeTag(filter.Sport)

	matched := make([]models.TeacherWithScore, 0, len(teachers))
	for _, teacher := range teachers {
		sports := normalizeTags(teacher.Sports)
		if sportFilter != "" {
			if _, ok := sports[sportFilter]; !ok {
				continue
			}
		}
		if filter.MaxPrice != nil && floatValue(teacher.HourlyRate) > *filter.MaxPrice {
			continue
		}
		matched = append(matched, models.TeacherWithScore{
			TeacherProfile: teacher,
			MatchScore:     matchScore(studentProfile, &teacher, sports),
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].MatchScore == matched[j].MatchScore {
			return floatValue(matched[i].Rating) > floatValue(matched[j].Rating)
		}
		return matched[i].MatchScore > matched[j].MatchScore
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func matchScore(studentProfile *models.StudentProfile, teacher *models.TeacherProfile, teacherSports map[string]struct{}) int {
	score := 0

	if studentProfile != nil {
		for _, sport := range sliceValue(studentProfile.Sports) {
			if _, ok := teacherSports[normalizeTag(sport)]; ok {
				score += 40
			}
		}
		if budget := floatValue(studentProfile.MaxHourlyRate); budget > 0 && floatValue(teacher.HourlyRate) <= budget {
			score += 15
		}
	}

	if floatValue(teacher.Rating) > 4.0 {
		score += 20
	}
	if intValue(teacher.ExperienceYears) > 3 {
		score += 15
	}
	if teacher.GroupRate != nil && *teacher.GroupRate > 0 {
		score += 10
	}

	return score
}

func normalizeTags(values *[]string) map[string]struct{} {
	normalized := make(map[string]struct{})
	for _, value := range sliceValue(values) {
		if key := normalizeTag(value); key != "" {
			normalized[key] = struct{}{}
		}
	}
	return normalized
}

func normalizeTag(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}

func sliceValue(values *[]string) []string {
	if values == nil {
		return nil
	}
	return *values
}

func floatValue(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func intValue(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
