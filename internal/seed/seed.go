package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Account is a fixed login created before the generated population.
type Account struct {
	Username string             `yaml:"username"`
	Email    string             `yaml:"email"`
	Role     models.ProfileRole `yaml:"role"`
}

// Options sizes the generated marketplace. It doubles as the YAML preset format.
type Options struct {
	Profiles  int       `yaml:"profiles"`
	Hosts     int       `yaml:"hosts"`
	Listings  int       `yaml:"listings"`
	Seed      int64     `yaml:"seed"`
	Password  string    `yaml:"password"`
	Days      int       `yaml:"days"`
	Locations []string  `yaml:"locations"`
	Accounts  []Account `yaml:"accounts"`
	// Fast hashes passwords at bcrypt.MinCost.
	Fast bool `yaml:"fast"`
}

// DefaultOptions is a small but lively marketplace.
func DefaultOptions() Options {
	return Options{
		Profiles: 40,
		Hosts:    8,
		Listings: 30,
		Seed:     42,
		Password: "Password123",
		Days:     30,
		Accounts: []Account{
			{Username: "admin", Email: "admin@example.com", Role: models.RoleAdmin},
			{Username: "host", Email: "host@example.com", Role: models.RoleHost},
			{Username: "guest", Email: "guest@example.com", Role: models.RoleGuest},
		},
	}
}

// ParsePreset decodes a YAML preset over base. Keys missing from the preset
// keep base's values.
func ParsePreset(raw []byte, base Options) (Options, error) {
	opts := base
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return base, fmt.Errorf("parse preset: %w", err)
	}
	for _, a := range opts.Accounts {
		if !a.Role.Valid() {
			return base, fmt.Errorf("preset account %q has invalid role %q", a.Username, a.Role)
		}
	}
	return opts, nil
}

// LoadPreset reads a preset file.
func LoadPreset(path string, base Options) (Options, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	return ParsePreset(raw, base)
}

// Summary counts what a run created.
type Summary struct {
	Profiles         int
	Accommodations   int
	Experiences      int
	Connections      int
	Messages         int
	Comments         int
	Favorites        int
	Events           int
	HostApplications int
}

// Seeder writes a generated marketplace into a database.
type Seeder struct {
	db   *gorm.DB
	opts Options
	f    *Factory
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.Days <= 0 {
		opts.Days = 30
	}
	if opts.Password == "" {
		opts.Password = DefaultOptions().Password
	}
	return &Seeder{db: db, opts: opts, f: NewFactory(opts.Seed, opts.Locations)}
}

// Run seeds everything in one transaction.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	cost := bcrypt.DefaultCost
	if s.opts.Fast {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	start := time.Now()
	sum := &Summary{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)

		var hosts, guests []*models.Profile
		seq := 0
		next := func() string {
			seq++
			return s.f.Username(seq)
		}
		add := func(username, email string, role models.ProfileRole) error {
			user, profile := s.f.Account(username, email, string(hash), role)
			if err := users.CreateWithProfile(ctx, user, profile); err != nil {
				return fmt.Errorf("create %s: %w", username, err)
			}
			sum.Profiles++
			switch role {
			case models.RoleHost:
				hosts = append(hosts, profile)
			case models.RoleGuest:
				guests = append(guests, profile)
			}
			return nil
		}

		for _, a := range s.opts.Accounts {
			if err := add(a.Username, a.Email, a.Role); err != nil {
				return err
			}
		}
		for i := 0; i < s.opts.Hosts; i++ {
			if err := add(next(), "", models.RoleHost); err != nil {
				return err
			}
		}
		for i := 0; i < s.opts.Profiles; i++ {
			if err := add(next(), "", models.RoleGuest); err != nil {
				return err
			}
		}

		refs, err := s.seedListings(tx, hosts, sum)
		if err != nil {
			return err
		}
		if err := s.seedSocial(tx, guests, hosts, sum); err != nil {
			return err
		}
		return s.seedEngagement(tx, guests, refs, sum)
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("Seed complete",
		slog.Int("profiles", sum.Profiles),
		slog.Int("accommodations", sum.Accommodations),
		slog.Int("experiences", sum.Experiences),
		slog.Int("connections", sum.Connections),
		slog.Int("messages", sum.Messages),
		slog.Int("events", sum.Events),
		slog.Duration("elapsed", time.Since(start)),
	)
	return sum, nil
}

// seedListings alternates accommodations and experiences across hosts. Most
// are published; the rest stay as drafts. Only published refs are returned.
func (s *Seeder) seedListings(tx *gorm.DB, hosts []*models.Profile, sum *Summary) ([]models.ListingRef, error) {
	if len(hosts) == 0 && s.opts.Listings > 0 {
		return nil, errors.New("listings need at least one host")
	}
	var refs []models.ListingRef
	for i := 0; i < s.opts.Listings; i++ {
		host := hosts[i%len(hosts)]
		published := s.f.Chance(85)
		if i%2 == 0 {
			a := s.f.Accommodation(host.ID)
			a.IsPublished = published
			a.CreatedAt = s.f.Past(s.opts.Days * 3)
			if err := tx.Create(a).Error; err != nil {
				return nil, fmt.Errorf("create accommodation: %w", err)
			}
			sum.Accommodations++
			if published {
				refs = append(refs, models.ListingRef{Type: models.ContentAccommodation, ID: a.ID})
			}
			continue
		}
		e := s.f.Experience(host.ID)
		e.IsPublished = published
		e.CreatedAt = s.f.Past(s.opts.Days * 3)
		if err := tx.Create(e).Error; err != nil {
			return nil, fmt.Errorf("create experience: %w", err)
		}
		sum.Experiences++
		if published {
			refs = append(refs, models.ListingRef{Type: models.ContentExperience, ID: e.ID})
		}
	}
	return refs, nil
}

// seedSocial links each guest to a few later guests, holds conversations
// over accepted connections, and files host applications for some guests.
func (s *Seeder) seedSocial(tx *gorm.DB, guests, hosts []*models.Profile, sum *Summary) error {
	people := append(append([]*models.Profile{}, guests...), hosts...)
	for i, p := range people {
		for j := i + 1; j < len(people) && j <= i+3; j++ {
			if !s.f.Chance(60) {
				continue
			}
			conn := &models.Connection{
				InviterID: p.ID,
				InviteeID: people[j].ID,
				Status:    models.ConnectionAccepted,
				Message:   "Hi! Fellow nature lover here.",
			}
			if s.f.Chance(25) {
				conn.Status = models.ConnectionPending
			}
			if err := tx.Create(conn).Error; err != nil {
				return fmt.Errorf("create connection: %w", err)
			}
			sum.Connections++
			if conn.Status != models.ConnectionAccepted {
				continue
			}

			at := s.f.Past(s.opts.Days)
			n := 2 + s.f.Intn(5)
			for k := 0; k < n; k++ {
				from, to := conn.InviterID, conn.InviteeID
				if k%2 == 1 {
					from, to = to, from
				}
				at = at.Add(time.Duration(5+s.f.Intn(240)) * time.Minute)
				if err := tx.Create(s.f.Message(from, to, at)).Error; err != nil {
					return fmt.Errorf("create message: %w", err)
				}
				sum.Messages++
			}
		}
	}

	for _, g := range guests {
		if !s.f.Chance(15) {
			continue
		}
		if err := tx.Create(s.f.HostApplication(g.ID)).Error; err != nil {
			return fmt.Errorf("create host application: %w", err)
		}
		sum.HostApplications++
	}
	return nil
}

func (s *Seeder) seedEngagement(tx *gorm.DB, guests []*models.Profile, refs []models.ListingRef, sum *Summary) error {
	if len(refs) == 0 {
		return nil
	}
	type favKey struct {
		profile uint
		ref     models.ListingRef
	}
	favored := map[favKey]bool{}
	var events []*models.EngagementEvent

	for _, g := range guests {
		for n := 3 + s.f.Intn(8); n > 0; n-- {
			ref := refs[s.f.Intn(len(refs))]
			id := g.ID
			ev := s.f.EngagementEvent(&id, ref, s.opts.Days)
			events = append(events, ev)

			switch ev.EventType {
			case models.EngagementFavorite:
				key := favKey{g.ID, ref}
				if favored[key] {
					continue
				}
				favored[key] = true
				fav := &models.Favorite{ProfileID: g.ID, ContentType: ref.Type, ContentID: ref.ID, CreatedAt: ev.CreatedAt}
				if err := tx.Create(fav).Error; err != nil {
					return fmt.Errorf("create favorite: %w", err)
				}
				sum.Favorites++
			case models.EngagementComment:
				c := s.f.Comment(g.ID, ref)
				c.CreatedAt = ev.CreatedAt
				if err := tx.Create(c).Error; err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}
		}
	}

	// anonymous browsing
	for n := len(refs) * 4; n > 0; n-- {
		events = append(events, s.f.EngagementEvent(nil, refs[s.f.Intn(len(refs))], s.opts.Days))
	}

	if err := tx.CreateInBatches(events, 200).Error; err != nil {
		return fmt.Errorf("create engagement events: %w", err)
	}
	sum.Events = len(events)
	return nil
}
