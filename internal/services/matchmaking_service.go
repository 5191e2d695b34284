package services

import (
	"context"
	"sort"
	"strings"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type SitterMatcher interface {
	ListAll(ctx context.Context) ([]models.SitterProfile, error)
}

type MatchmakingService struct {
	sitterRepo SitterMatcher
}

func NewMatchmakingService(sitterRepo SitterMatcher) *MatchmakingService {
	return &MatchmakingService{sitterRepo: sitterRepo}
}

type MatchCriteria struct {
	City        string
	ServiceType string
	PetSpecies  []string
	MaxRate     int64
}

func (s *MatchmakingService) GetMatchedSitters(ctx context.Context, criteria MatchCriteria, limit int) ([]models.SitterWithScore, error) {
	sitters, err := s.sitterRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.SitterWithScore, 0, len(sitters))
	for _, sitter := range sitters {
		matched = append(matched, models.SitterWithScore{
			SitterProfile: sitter,
			MatchScore:    calculateMatchScore(criteria, &sitter),
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].MatchScore == matched[j].MatchScore {
			return floatValue(matched[i].Rating) > floatValue(matched[j].Rating)
		}
		return matched[i].MatchScore > matched[j].MatchScore
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

func calculateMatchScore(criteria MatchCriteria, sitter *models.SitterProfile) int {
	score := 0
	accepted := normalizeValues(sitter.AcceptedPets)
	services := normalizeValues(sitter.Services)

	for _, species := range dedupe(criteria.PetSpecies) {
		if _, ok := accepted[normalize(species)]; ok {
			score += 40
		}
	}

	if service := normalize(criteria.ServiceType); service != "" {
		if _, ok := services[service]; ok {
			score += 15
		}
	}

	if city := normalize(criteria.City); city != "" && sitter.City != nil && normalize(*sitter.City) == city {
		score += 20
	}

	if floatValue(sitter.Rating) > 4.0 {
		score += 20
	}
	if sitter.IsVerified != nil && *sitter.IsVerified {
		score += 10
	}
	if criteria.MaxRate > 0 && sitter.HourlyRateCents != nil && *sitter.HourlyRateCents <= criteria.MaxRate {
		score += 15
	}

	return score
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, value := range values {
		key := normalize(value)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	return unique
}

func normalizeValues(values *[]string) map[string]struct{} {
	normalized := make(map[string]struct{})
	if values == nil {
		return normalized
	}
	for _, value := range *values {
		if key := normalize(value); key != "" {
			normalized[key] = struct{}{}
		}
	}
	return normalized
}

func normalize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}

func floatValue(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
