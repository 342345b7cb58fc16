package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/validation"

	"gorm.io/datatypes"
)

// UpdateProfileInput carries optional profile changes. Nil fields are left as is.
type UpdateProfileInput struct {
	Username  *string
	FullName  *string
	AvatarURL *string
	Bio       *string
	Location  *string
	Interests []string
}

// ProfileService reads and edits profiles.
type ProfileService struct {
	profiles repository.ProfileRepository
}

// NewProfileService returns a new ProfileService.
func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Get returns a profile by id.
func (s *ProfileService) Get(ctx context.Context, id uint) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// Update applies in to the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, id uint, in UpdateProfileInput) (*models.Profile, error) {
	current, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if !strings.EqualFold(username, current.Username) {
			taken, err := s.profiles.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if taken != nil && taken.ID != id {
				return nil, models.NewConflictError("Username is already taken")
			}
		}
		updates["username"] = username
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if utf8.RuneCountInString(name) > validation.MaxFullNameLen {
			return nil, models.NewValidationError("Full name too long (max 120 characters)")
		}
		updates["full_name"] = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > validation.MaxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		updates["bio"] = bio
	}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		if utf8.RuneCountInString(loc) > validation.MaxLocationLen {
			return nil, models.NewValidationError("Location too long")
		}
		updates["location"] = loc
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" && !validation.IsHTTPURL(avatar) {
			return nil, models.NewValidationError("Avatar must be an http(s) URL")
		}
		updates["avatar_url"] = avatar
	}
	if in.Interests != nil {
		interests, err := cleanInterests(in.Interests)
		if err != nil {
			return nil, err
		}
		updates["interests"] = interests
	}

	if len(updates) == 0 {
		return current, nil
	}
	if err := s.profiles.Update(ctx, id, updates); err != nil {
		return nil, duplicateAs(err, "Username is already taken")
	}
	return s.profiles.GetByID(ctx, id)
}

func cleanInterests(raw []string) (datatypes.JSONSlice[string], error) {
	out := make(datatypes.JSONSlice[string], 0, len(raw))
	seen := map[string]bool{}
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		if utf8.RuneCountInString(v) > 40 {
			return nil, models.NewValidationError("Interests must be at most 40 characters each")
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	if len(out) > validation.MaxInterests {
		return nil, models.NewValidationError("Too many interests (max 20)")
	}
	return out, nil
}
