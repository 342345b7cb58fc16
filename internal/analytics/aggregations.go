package analytics

import (
	"context"
	"math"
	"time"

	"resort/internal/models"
	"resort/internal/repository"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// TrendingItem is one ranked listing.
type TrendingItem struct {
	ContentType models.ContentType `json:"content_type"`
	ContentID   uint               `json:"content_id"`
	Title       string             `json:"title"`
	Views       int64              `json:"views"`
	Favorites   int64              `json:"favorites"`
	Comments    int64              `json:"comments"`
	Shares      int64              `json:"shares"`
	Inquiries   int64              `json:"inquiries"`
	Score       int64              `json:"score"`
}

// DayEngagement counts events per type on one UTC day.
type DayEngagement struct {
	Date      string `json:"date"`
	Views     int64  `json:"views"`
	Favorites int64  `json:"favorites"`
	Comments  int64  `json:"comments"`
	Shares    int64  `json:"shares"`
	Inquiries int64  `json:"inquiries"`
	Total     int64  `json:"total"`
}

// ContentStats summarizes one content type.
type ContentStats struct {
	ContentType  models.ContentType `json:"content_type"`
	Total        int64              `json:"total"`
	Published    int64              `json:"published"`
	Views        int64              `json:"views"`
	Favorites    int64              `json:"favorites"`
	Comments     int64              `json:"comments"`
	Shares       int64              `json:"shares"`
	Inquiries    int64              `json:"inquiries"`
	AveragePrice float64            `json:"average_price"`
}

// Cohort is the profiles that signed up in one week. Retention[k] is the
// fraction of them with an engagement event k weeks later.
type Cohort struct {
	Week      string    `json:"cohort_week"`
	Size      int       `json:"size"`
	Retention []float64 `json:"retention"`
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday 00:00 UTC on or before t.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func (s *Service) trending(ctx context.Context, days, limit int) ([]TrendingItem, error) {
	since := s.now().Add(-time.Duration(days) * day)
	rows, err := s.repos.Engagement.Trending(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	ids := map[models.ContentType][]uint{}
	for _, r := range rows {
		ids[r.ContentType] = append(ids[r.ContentType], r.ContentID)
	}
	titles := map[models.ListingRef]string{}
	for kind, list := range ids {
		var summaries []repository.ListingSummary
		switch kind {
		case models.ContentAccommodation:
			summaries, err = s.repos.Accommodations.Summaries(ctx, list)
		case models.ContentExperience:
			summaries, err = s.repos.Experiences.Summaries(ctx, list)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, sum := range summaries {
			titles[models.ListingRef{Type: kind, ID: sum.ID}] = sum.Title
		}
	}

	out := make([]TrendingItem, 0, len(rows))
	for _, r := range rows {
		title, ok := titles[models.ListingRef{Type: r.ContentType, ID: r.ContentID}]
		if !ok {
			// Listing deleted since the events were recorded.
			continue
		}
		out = append(out, TrendingItem{
			ContentType: r.ContentType,
			ContentID:   r.ContentID,
			Title:       title,
			Views:       r.Views,
			Favorites:   r.Favorites,
			Comments:    r.Comments,
			Shares:      r.Shares,
			Inquiries:   r.Inquiries,
			Score:       r.Score,
		})
	}
	return out, nil
}

func (s *Service) recentEngagement(ctx context.Context, days int) ([]DayEngagement, error) {
	start := startOfDay(s.now()).AddDate(0, 0, -(days - 1))
	events, err := s.repos.Engagement.EventsSince(ctx, start)
	if err != nil {
		return nil, err
	}
	return bucketDays(events, start, days), nil
}

// bucketDays counts events into days consecutive UTC days beginning at start.
func bucketDays(events []repository.EventStamp, start time.Time, days int) []DayEngagement {
	out := make([]DayEngagement, days)
	for i := range out {
		out[i].Date = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	for _, e := range events {
		idx := int(e.CreatedAt.UTC().Sub(start) / day)
		if idx < 0 || idx >= days {
			continue
		}
		row := &out[idx]
		switch e.EventType {
		case models.EngagementView:
			row.Views++
		case models.EngagementFavorite:
			row.Favorites++
		case models.EngagementComment:
			row.Comments++
		case models.EngagementShare:
			row.Shares++
		case models.EngagementInquiry:
			row.Inquiries++
		default:
			continue
		}
		row.Total++
	}
	return out
}

func (s *Service) contentAnalytics(ctx context.Context) ([]ContentStats, error) {
	counts, err := s.repos.Engagement.CountsByContentType(ctx)
	if err != nil {
		return nil, err
	}

	kinds := []models.ContentType{models.ContentAccommodation, models.ContentExperience}
	out := make([]ContentStats, 0, len(kinds))
	for _, kind := range kinds {
		stats, err := s.repos.Engagement.ListingStats(ctx, kind)
		if err != nil {
			return nil, err
		}
		row := ContentStats{
			ContentType:  kind,
			Total:        stats.Total,
			Published:    stats.Published,
			AveragePrice: math.Round(stats.AveragePrice*100) / 100,
		}
		for _, c := range counts {
			if c.ContentType != kind {
				continue
			}
			switch c.EventType {
			case models.EngagementView:
				row.Views = c.Count
			case models.EngagementFavorite:
				row.Favorites = c.Count
			case models.EngagementComment:
				row.Comments = c.Count
			case models.EngagementShare:
				row.Shares = c.Count
			case models.EngagementInquiry:
				row.Inquiries = c.Count
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service) retention(ctx context.Context, weeks int) ([]Cohort, error) {
	start := startOfWeek(s.now()).AddDate(0, 0, -7*(weeks-1))
	signups, err := s.repos.Engagement.SignupsSince(ctx, start)
	if err != nil {
		return nil, err
	}
	events, err := s.repos.Engagement.EventsSince(ctx, start)
	if err != nil {
		return nil, err
	}
	return cohorts(signups, events, start, weeks), nil
}

// cohorts groups signups into weekly cohorts starting at start and measures,
// for each later week, the fraction of members that engaged.
func cohorts(signups []repository.SignupStamp, events []repository.EventStamp, start time.Time, weeks int) []Cohort {
	weekOf := func(t time.Time) int {
		d := t.UTC().Sub(start)
		if d < 0 {
			return -1
		}
		return int(d / week)
	}

	members := make([][]uint, weeks)
	for _, su := range signups {
		if w := weekOf(su.CreatedAt); w >= 0 && w < weeks {
			members[w] = append(members[w], su.ID)
		}
	}

	active := map[uint]map[int]bool{}
	for _, e := range events {
		if e.ProfileID == nil {
			continue
		}
		w := weekOf(e.CreatedAt)
		if w < 0 || w >= weeks {
			continue
		}
		if active[*e.ProfileID] == nil {
			active[*e.ProfileID] = map[int]bool{}
		}
		active[*e.ProfileID][w] = true
	}

	out := make([]Cohort, weeks)
	for i := 0; i < weeks; i++ {
		c := Cohort{
			Week:      start.AddDate(0, 0, 7*i).Format(time.DateOnly),
			Size:      len(members[i]),
			Retention: make([]float64, weeks-i),
		}
		if c.Size > 0 {
			for k := range c.Retention {
				n := 0
				for _, id := range members[i] {
					if active[id][i+k] {
						n++
					}
				}
				c.Retention[k] = math.Round(float64(n)/float64(c.Size)*1000) / 1000
			}
		}
		out[i] = c
	}
	return out
}
