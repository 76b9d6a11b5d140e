package engagement

import "github.com/mindpath-app/mindpath/internal/domain"

// DefaultRecommendation is the hint for moods the table does not cover.
const DefaultRecommendation = domain.CategoryMindfulness

// highIntensity is the intensity at which the "strong" column applies.
const highIntensity = 7

// recommendation holds the hint for mild and strong feelings of one mood.
type recommendation struct {
	mild   domain.ExerciseCategory
	strong domain.ExerciseCategory
}

var recommendations = map[domain.Mood]recommendation{
	domain.MoodGreat:    {mild: domain.CategoryJournaling, strong: domain.CategoryJournaling},
	domain.MoodGood:     {mild: domain.CategoryMindfulness, strong: domain.CategoryJournaling},
	domain.MoodOkay:     {mild: domain.CategoryMindfulness, strong: domain.CategoryMindfulness},
	domain.MoodLow:      {mild: domain.CategoryJournaling, strong: domain.CategoryCognitive},
	domain.MoodSad:      {mild: domain.CategoryJournaling, strong: domain.CategoryCognitive},
	domain.MoodAnxious:  {mild: domain.CategoryCognitive, strong: domain.CategoryBreathing},
	domain.MoodStressed: {mild: domain.CategoryMindfulness, strong: domain.CategoryBreathing},
	domain.MoodAngry:    {mild: domain.CategoryBreathing, strong: domain.CategoryBreathing},
}

// Recommend maps a mood and intensity (1–10, clamped) to an exercise category hint.
// It never fails: unknown moods fall back to DefaultRecommendation.
func Recommend(mood domain.Mood, intensity int) domain.ExerciseCategory {
	rec, ok := recommendations[mood]
	if !ok {
		return DefaultRecommendation
	}
	if domain.ClampIntensity(intensity) >= highIntensity {
		return rec.strong
	}
	return rec.mild
}

// RecommendKey is Recommend for a raw mood label, as received from clients.
func RecommendKey(moodKey string, intensity int) domain.ExerciseCategory {
	mood, err := domain.ParseMood(moodKey)
	if err != nil {
		return DefaultRecommendation
	}
	return Recommend(mood, intensity)
}
