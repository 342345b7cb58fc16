package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"resort/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Each generator uses its own fixed seed so repeated calls return the same data.
const (
	trendingSeed   = 7001
	engagementSeed = 7002
	contentSeed    = 7003
	retentionSeed  = 7004
)

var stayNames = []string{"Cabin", "Treehouse", "Yurt", "Lodge", "Cottage", "Dome"}
var experienceNames = []string{"Forest Bathing", "Sunrise Kayak", "Wild Foraging", "Stargazing", "Trail Run", "Sound Bath"}

func fallbackTrending(limit int) []TrendingItem {
	f := gofakeit.New(trendingSeed)
	out := make([]TrendingItem, 0, limit)
	for i := 0; i < limit; i++ {
		item := TrendingItem{
			ContentID: uint(i + 1),
			Views:     int64(f.Number(20, 400)),
			Favorites: int64(f.Number(0, 60)),
			Comments:  int64(f.Number(0, 30)),
			Shares:    int64(f.Number(0, 15)),
			Inquiries: int64(f.Number(0, 10)),
		}
		if i%2 == 0 {
			item.ContentType = models.ContentAccommodation
			item.Title = fmt.Sprintf("%s %s", f.City(), stayNames[f.Number(0, len(stayNames)-1)])
		} else {
			item.ContentType = models.ContentExperience
			item.Title = fmt.Sprintf("%s in %s", experienceNames[f.Number(0, len(experienceNames)-1)], f.City())
		}
		item.Score = item.Views*1 + item.Favorites*3 + item.Comments*2 + item.Shares*4 + item.Inquiries*5
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func fallbackEngagement(now time.Time, days int) []DayEngagement {
	f := gofakeit.New(engagementSeed)
	start := startOfDay(now).AddDate(0, 0, -(days - 1))
	out := make([]DayEngagement, days)
	for i := range out {
		row := DayEngagement{
			Date:      start.AddDate(0, 0, i).Format(time.DateOnly),
			Views:     int64(f.Number(40, 180)),
			Favorites: int64(f.Number(2, 25)),
			Comments:  int64(f.Number(0, 12)),
			Shares:    int64(f.Number(0, 8)),
			Inquiries: int64(f.Number(0, 6)),
		}
		row.Total = row.Views + row.Favorites + row.Comments + row.Shares + row.Inquiries
		out[i] = row
	}
	return out
}

func fallbackContent() []ContentStats {
	f := gofakeit.New(contentSeed)
	out := make([]ContentStats, 0, 2)
	for _, kind := range []models.ContentType{models.ContentAccommodation, models.ContentExperience} {
		total := int64(f.Number(12, 60))
		out = append(out, ContentStats{
			ContentType:  kind,
			Total:        total,
			Published:    total - int64(f.Number(0, 8)),
			Views:        int64(f.Number(800, 5000)),
			Favorites:    int64(f.Number(50, 400)),
			Comments:     int64(f.Number(20, 200)),
			Shares:       int64(f.Number(10, 120)),
			Inquiries:    int64(f.Number(5, 80)),
			AveragePrice: math.Round(f.Float64Range(45, 320)*100) / 100,
		})
	}
	return out
}

func fallbackRetention(now time.Time, weeks int) []Cohort {
	f := gofakeit.New(retentionSeed)
	start := startOfWeek(now).AddDate(0, 0, -7*(weeks-1))
	out := make([]Cohort, weeks)
	for i := range out {
		c := Cohort{
			Week:      start.AddDate(0, 0, 7*i).Format(time.DateOnly),
			Size:      f.Number(8, 40),
			Retention: make([]float64, weeks-i),
		}
		rate := f.Float64Range(0.6, 0.95)
		for k := range c.Retention {
			if k > 0 {
				rate *= f.Float64Range(0.55, 0.9)
			}
			c.Retention[k] = math.Round(rate*1000) / 1000
		}
		out[i] = c
	}
	return out
}
