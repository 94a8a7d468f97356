package seed

import (
	"fmt"
	"log"

	"pulsevote/internal/models"

	"gorm.io/gorm"
)

// DefaultOptions is the demo volume used by cmd/seed.
var DefaultOptions = Options{Profiles: 30, Surveys: 40, Groups: 3, VotesPerProfile: 8, MaxDays: 30}

// Result summarizes what Demo inserted.
type Result struct {
	Admin    *models.Profile
	Profiles []*models.Profile
	Surveys  []*models.Survey
	Groups   []*models.Group
	Votes    int
}

// Seeder populates a database with demo content on top of the catalog.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder.
func NewSeeder(db *gorm.DB, opts Options, seed int64) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts, seed), opts: opts}
}

// ClearAll removes every demo-owned row. The preference catalog stays.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.UserVote{}, &models.Reaction{}, &models.Comment{}, &models.SurveyOption{},
		&models.Survey{}, &models.GroupMember{}, &models.Group{}, &models.UserPreference{},
		&models.UserRole{}, &models.Profile{},
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}

// Demo seeds the catalog, an admin, fake profiles with saved preferences,
// public and group surveys, and votes.
func (s *Seeder) Demo() (*Result, error) {
	if err := Preferences(s.db); err != nil {
		return nil, err
	}
	var prefs []models.Preference
	if err := s.db.Order("name ASC").Find(&prefs).Error; err != nil {
		return nil, err
	}

	res := &Result{}
	admin, err := s.factory.CreateAdmin()
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	res.Admin = admin

	for i := 0; i < s.opts.Profiles; i++ {
		p, err := s.factory.CreateProfile()
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		res.Profiles = append(res.Profiles, p)
		if len(prefs) > 0 {
			picked := s.pickPreferences(p.ID, prefs)
			if err := s.db.Create(&picked).Error; err != nil {
				return nil, fmt.Errorf("save preferences: %w", err)
			}
		}
	}
	log.Printf("✓ %d profiles created", len(res.Profiles))

	for i := 0; i < s.opts.Surveys; i++ {
		var pref *models.Preference
		if len(prefs) > 0 {
			pref = &prefs[s.factory.rnd.Intn(len(prefs))]
		}
		survey, err := s.factory.CreateSurvey(admin, pref)
		if err != nil {
			return nil, fmt.Errorf("create survey: %w", err)
		}
		res.Surveys = append(res.Surveys, survey)
	}

	for i := 0; i < s.opts.Groups && len(res.Profiles) > 0; i++ {
		owner := res.Profiles[s.factory.rnd.Intn(len(res.Profiles))]
		g, err := s.factory.CreateGroup(owner, s.pickMembers(res.Profiles, owner)...)
		if err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}
		res.Groups = append(res.Groups, g)
		survey, err := s.factory.CreateSurvey(owner, nil, func(sv *models.Survey) {
			sv.GroupID = &g.ID
			sv.IsPublicLink = g.Type == models.GroupTypeCompany
		})
		if err != nil {
			return nil, fmt.Errorf("create group survey: %w", err)
		}
		res.Surveys = append(res.Surveys, survey)
	}
	log.Printf("✓ %d surveys and %d groups created", len(res.Surveys), len(res.Groups))

	votes, err := s.seedVotes(res.Profiles, res.Surveys)
	if err != nil {
		return nil, err
	}
	res.Votes = votes
	log.Printf("✓ %d votes cast", votes)
	return res, nil
}

// seedVotes casts up to VotesPerProfile votes per profile on public surveys,
// one option per survey.
func (s *Seeder) seedVotes(profiles []*models.Profile, surveys []*models.Survey) (int, error) {
	var public []*models.Survey
	for _, sv := range surveys {
		if sv.GroupID == nil {
			public = append(public, sv)
		}
	}
	if len(public) == 0 {
		return 0, nil
	}

	total := 0
	for _, p := range profiles {
		order := s.factory.rnd.Perm(len(public))
		n := min(s.opts.VotesPerProfile, len(order))
		for _, idx := range order[:n] {
			sv := public[idx]
			opt := &sv.Options[s.factory.rnd.Intn(len(sv.Options))]
			if err := s.factory.CastVote(p, sv, opt); err != nil {
				return total, fmt.Errorf("cast vote: %w", err)
			}
			total++
		}
	}
	return total, nil
}

// pickPreferences selects one to three distinct catalog entries for userID.
func (s *Seeder) pickPreferences(userID string, prefs []models.Preference) []models.UserPreference {
	order := s.factory.rnd.Perm(len(prefs))
	n := min(1+s.factory.rnd.Intn(3), len(order))
	out := make([]models.UserPreference, 0, n)
	for _, idx := range order[:n] {
		out = append(out, models.UserPreference{UserID: userID, PreferenceID: prefs[idx].ID})
	}
	return out
}

// pickMembers selects up to four profiles other than owner.
func (s *Seeder) pickMembers(profiles []*models.Profile, owner *models.Profile) []*models.Profile {
	var out []*models.Profile
	for _, idx := range s.factory.rnd.Perm(len(profiles)) {
		if len(out) == 4 {
			break
		}
		if profiles[idx].ID != owner.ID {
			out = append(out, profiles[idx])
		}
	}
	return out
}
