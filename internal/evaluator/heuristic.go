package evaluator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// heuristic is the deterministic network-free scorer. It never fails, which
// keeps Evaluate total even when every external dependency is down.
func (e *Evaluator) heuristic(content, platform string, profile *brand.Profile) domain.EvaluationResult {
	length := lengthScore(content, profile.LimitFor(platform))
	keywords := keywordScore(content, profile.Keywords)
	engagement := engagementScore(content)

	score := e.weights.Length*length + e.weights.Keywords*keywords + e.weights.Engagement*engagement
	explanation := fmt.Sprintf("heuristic: length %.2f, keywords %.2f, engagement %.2f",
		length, keywords, engagement)

	if phrase, found := profile.ContainsBanned(content); found {
		score /= 2
		explanation += fmt.Sprintf(", banned phrase %q", phrase)
	}

	return domain.EvaluationResult{
		OverallScore: domain.ClampScore(score),
		Explanation:  explanation,
		ModelUsed:    domain.FallbackModel,
		EvaluatedAt:  e.now(),
	}
}

// lengthScore rewards content between half the platform limit and the limit
func lengthScore(content string, limit int) float64 {
	n := utf8.RuneCountInString(content)
	if n == 0 || limit <= 0 {
		return 0
	}

	half := float64(limit) / 2
	switch {
	case float64(n) < half:
		return float64(n) / half
	case n <= limit:
		return 1
	default:
		over := float64(n-limit) / float64(limit)
		if over >= 1 {
			return 0
		}
		return 1 - over
	}
}

// keywordScore is the fraction of brand-voice keywords present, capped at 1
func keywordScore(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		// No voice defined; stay neutral
		return 0.5
	}

	lower := strings.ToLower(content)
	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			hits++
		}
	}

	score := float64(hits) / float64(len(keywords))
	if score > 1 {
		return 1
	}
	return score
}

// engagementScore checks for hashtag, punctuation, and emoji markers
func engagementScore(content string) float64 {
	var score float64
	if strings.ContainsRune(content, '#') {
		score += 0.4
	}
	if strings.ContainsAny(content, "!?") {
		score += 0.3
	}
	if containsEmoji(content) {
		score += 0.3
	}
	return score
}

func containsEmoji(content string) bool {
	for _, r := range content {
		if r >= 0x1F300 && r <= 0x1FAFF {
			return true
		}
		// Misc symbols and dingbats used as emoji
		if r >= 0x2600 && r <= 0x27BF {
			return true
		}
	}
	return false
}
