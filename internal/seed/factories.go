// Package seed fills a development database with a believable marketplace:
// guests, hosts, listings, connections, conversations and engagement history.
// It is intended for development and demos only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"resort/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	propertyTypes = []string{"cabin", "treehouse", "yurt", "lodge", "cottage", "dome", "tent"}
	amenities     = []string{"wifi", "wood stove", "hot tub", "kitchen", "fire pit", "kayaks", "bikes", "sauna", "outdoor shower", "pet friendly"}
	categories    = []string{"hiking", "wellness", "wildlife", "water", "food", "stargazing"}
	included      = []string{"guide", "snacks", "equipment", "transport", "photos", "tea"}
	stayWords     = []string{"Quiet", "Hidden", "Mossy", "Riverside", "Alpine", "Cedar", "Misty", "Wild"}
	activities    = map[string][]string{
		"hiking":     {"Ridge Walk", "Waterfall Trek", "Sunrise Hike"},
		"wellness":   {"Forest Bathing", "Sound Bath", "Cold Plunge"},
		"wildlife":   {"Owl Watch", "Tracking Walk", "Birding Morning"},
		"water":      {"Sunrise Kayak", "River Float", "Paddleboard Tour"},
		"food":       {"Wild Foraging", "Campfire Cooking", "Mushroom Hunt"},
		"stargazing": {"Night Sky Tour", "Meteor Watch", "Moonlit Walk"},
	}

	defaultLocations = []string{
		"Big Sur, CA", "Bend, OR", "Asheville, NC", "Moab, UT", "Taos, NM",
		"Stowe, VT", "Bozeman, MT", "Olympic Peninsula, WA", "Ozarks, AR", "Finger Lakes, NY",
	}
)

// Factory builds unsaved domain entities from a seeded faker, so the same
// seed always produces the same marketplace.
type Factory struct {
	faker     *gofakeit.Faker
	locations []string
	now       time.Time
}

// NewFactory returns a Factory. Empty locations fall back to a built-in list.
func NewFactory(seed int64, locations []string) *Factory {
	if len(locations) == 0 {
		locations = defaultLocations
	}
	return &Factory{
		faker:     gofakeit.New(seed),
		locations: locations,
		now:       time.Now().UTC(),
	}
}

// Intn returns a value in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

// Chance reports true with probability pct/100.
func (f *Factory) Chance(pct int) bool {
	return f.faker.Number(1, 100) <= pct
}

func (f *Factory) location() string {
	return f.locations[f.Intn(len(f.locations))]
}

func (f *Factory) pickSome(from []string, max int) []string {
	n := f.faker.Number(1, max)
	out := make([]string, 0, n)
	seen := map[string]bool{}
	for len(out) < n {
		v := from[f.Intn(len(from))]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (f *Factory) images(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://picsum.photos/seed/%s/1200/800", f.faker.UUID())
	}
	return out
}

// Past returns a time within the last days days.
func (f *Factory) Past(days int) time.Time {
	return f.now.Add(-time.Duration(f.faker.Number(0, days*24*60)) * time.Minute)
}

// Username returns a valid, unique-per-index username.
func (f *Factory) Username(i int) string {
	base := strings.ToLower(f.faker.FirstName())
	clean := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if clean == "" {
		clean = "guest"
	}
	if len(clean) > 20 {
		clean = clean[:20]
	}
	return fmt.Sprintf("%s_%d", clean, i)
}

// Account builds the auth identity and profile for username.
func (f *Factory) Account(username, email, passwordHash string, role models.ProfileRole) (*models.User, *models.Profile) {
	if email == "" {
		email = username + "@example.com"
	}
	user := &models.User{Email: strings.ToLower(email), Password: passwordHash}
	profile := &models.Profile{
		Username:  username,
		FullName:  f.faker.FirstName() + " " + f.faker.LastName(),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Bio:       f.faker.Sentence(12),
		Location:  f.location(),
		Interests: f.pickSome(categories, 3),
		Role:      role,
	}
	return user, profile
}

// Accommodation builds an unsaved accommodation owned by hostID.
func (f *Factory) Accommodation(hostID uint) *models.Accommodation {
	kind := propertyTypes[f.Intn(len(propertyTypes))]
	loc := f.location()
	town := strings.SplitN(loc, ",", 2)[0]
	return &models.Accommodation{
		HostID:        hostID,
		Title:         fmt.Sprintf("%s %s near %s", stayWords[f.Intn(len(stayWords))], strings.ToUpper(kind[:1])+kind[1:], town),
		Description:   f.faker.Paragraph(2, 3, 12, " "),
		Location:      loc,
		PropertyType:  kind,
		PricePerNight: float64(f.faker.Number(6, 45) * 10),
		MaxGuests:     f.faker.Number(1, 8),
		Bedrooms:      f.faker.Number(0, 4),
		Bathrooms:     f.faker.Number(1, 3),
		Amenities:     f.pickSome(amenities, 5),
		ImageURLs:     f.images(f.faker.Number(1, 4)),
	}
}

// Experience builds an unsaved experience owned by hostID.
func (f *Factory) Experience(hostID uint) *models.Experience {
	category := categories[f.Intn(len(categories))]
	names := activities[category]
	loc := f.location()
	return &models.Experience{
		HostID:          hostID,
		Title:           fmt.Sprintf("%s in %s", names[f.Intn(len(names))], strings.SplitN(loc, ",", 2)[0]),
		Description:     f.faker.Paragraph(1, 3, 12, " "),
		Location:        loc,
		Category:        category,
		Price:           float64(f.faker.Number(3, 30) * 5),
		DurationHours:   float64(f.faker.Number(2, 16)) / 2,
		MaxParticipants: f.faker.Number(2, 14),
		Included:        f.pickSome(included, 3),
		ImageURLs:       f.images(f.faker.Number(1, 3)),
	}
}

// Comment builds a review-style comment on ref.
func (f *Factory) Comment(profileID uint, ref models.ListingRef) *models.Comment {
	return &models.Comment{
		ProfileID:   profileID,
		ContentType: ref.Type,
		ContentID:   ref.ID,
		Body:        f.faker.Sentence(f.faker.Number(6, 18)),
	}
}

// Message builds a message sent at at. Messages older than a day are read.
func (f *Factory) Message(from, to uint, at time.Time) *models.Message {
	m := &models.Message{
		SenderID:    from,
		RecipientID: to,
		Content:     f.faker.Sentence(f.faker.Number(3, 14)),
		CreatedAt:   at,
	}
	if f.now.Sub(at) > 24*time.Hour {
		readAt := at.Add(time.Duration(f.faker.Number(1, 180)) * time.Minute)
		m.IsRead = true
		m.ReadAt = &readAt
	}
	return m
}

// HostApplication builds a pending application for profileID.
func (f *Factory) HostApplication(profileID uint) *models.HostApplication {
	kinds := []string{"accommodation", "experience", "both"}
	return &models.HostApplication{
		ProfileID:    profileID,
		Status:       models.HostApplicationPending,
		BusinessName: f.faker.Company(),
		ListingType:  kinds[f.Intn(len(kinds))],
		Location:     f.location(),
		About:        f.faker.Paragraph(1, 3, 10, " "),
		Experience:   f.faker.Sentence(10),
		Phone:        f.faker.Phone(),
	}
}

// EngagementEvent builds an event on ref within the last days days. Views
// dominate the mix the way they do in real traffic.
func (f *Factory) EngagementEvent(profileID *uint, ref models.ListingRef, days int) *models.EngagementEvent {
	var kind models.EngagementType
	switch roll := f.faker.Number(1, 100); {
	case roll <= 70:
		kind = models.EngagementView
	case roll <= 82:
		kind = models.EngagementFavorite
	case roll <= 90:
		kind = models.EngagementComment
	case roll <= 96:
		kind = models.EngagementShare
	default:
		kind = models.EngagementInquiry
	}
	return &models.EngagementEvent{
		ProfileID:   profileID,
		ContentType: ref.Type,
		ContentID:   ref.ID,
		EventType:   kind,
		CreatedAt:   f.Past(days),
	}
}
