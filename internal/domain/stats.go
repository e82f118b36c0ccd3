package domain

import "sort"

// SummarizePerformance aggregates score figures over attempts. All fields are zero when
// attempts is empty. Averages are not rounded.
func SummarizePerformance(attempts []Attempt) PerformanceStats {
	if len(attempts) == 0 {
		return PerformanceStats{}
	}
	var stats PerformanceStats
	var totalScore, totalPercentage float64
	for i, a := range attempts {
		totalScore += float64(a.Score)
		totalPercentage += a.Percentage
		if i == 0 || a.Score > stats.BestScore {
			stats.BestScore = a.Score
		}
		if i == 0 || a.Percentage > stats.BestPercentage {
			stats.BestPercentage = a.Percentage
		}
	}
	stats.TotalAttempts = len(attempts)
	stats.AverageScore = totalScore / float64(len(attempts))
	stats.AveragePercentage = totalPercentage / float64(len(attempts))
	return stats
}

// RankLeaderboard groups attempts by user, optionally restricted to one persisted topic, and
// orders users by best percentage then average percentage, both descending.
// Usernames are left empty for the caller to resolve. limit <= 0 keeps every user.
func RankLeaderboard(attempts []Attempt, topicID string, limit int) []LeaderboardEntry {
	filter := AttemptFilter{TopicID: topicID}
	byUser := make(map[string][]Attempt)
	for _, a := range attempts {
		if !filter.Matches(a) {
			continue
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for userID, list := range byUser {
		entries = append(entries, LeaderboardEntry{
			UserID:           userID,
			PerformanceStats: SummarizePerformance(list),
		})
	}
	SortLeaderboard(entries)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// SortLeaderboard orders entries by best percentage, then average percentage, then user id.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BestPercentage != entries[j].BestPercentage {
			return entries[i].BestPercentage > entries[j].BestPercentage
		}
		if entries[i].AveragePercentage != entries[j].AveragePercentage {
			return entries[i].AveragePercentage > entries[j].AveragePercentage
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// SortAttemptsNewestFirst orders attempts by creation time descending, then id for stability.
func SortAttemptsNewestFirst(attempts []Attempt) {
	sort.Slice(attempts, func(i, j int) bool {
		if !attempts[i].CreatedAt.Equal(attempts[j].CreatedAt) {
			return attempts[i].CreatedAt.After(attempts[j].CreatedAt)
		}
		return attempts[i].ID > attempts[j].ID
	})
}

// Page slices items for a 1-based page. Out of range pages yield an empty slice.
func Page[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 || page-1 > len(items)/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
