// Package seed loads the built-in preference catalog and, for development,
// populates the database with fake profiles, groups, surveys and votes.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"pulsevote/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options tune the demo data volume.
type Options struct {
	Profiles        int
	Surveys         int
	Groups          int
	VotesPerProfile int
	// MaxDays spreads survey timestamps over the last N days.
	MaxDays int
}

// Factory builds domain entities and persists them.
type Factory struct {
	db   *gorm.DB
	opts Options
	rnd  *rand.Rand
}

// NewFactory creates a Factory bound to db. A fixed seed makes runs repeatable.
func NewFactory(db *gorm.DB, opts Options, seed int64) *Factory {
	gofakeit.Seed(seed)
	return &Factory{db: db, opts: opts, rnd: rand.New(rand.NewSource(seed))}
}

// CreateProfile persists a fake profile.
func (f *Factory) CreateProfile(overrides ...func(*models.Profile)) (*models.Profile, error) {
	name := gofakeit.Name()
	country := gofakeit.CountryAbr()
	p := &models.Profile{
		Email:       fmt.Sprintf("%s.%d@%s", gofakeit.Username(), gofakeit.Number(100, 999), gofakeit.DomainName()),
		DisplayName: &name,
		Country:     &country,
	}
	for _, o := range overrides {
		o(p)
	}
	if err := f.db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// CreateAdmin persists a fake profile holding the admin role.
func (f *Factory) CreateAdmin() (*models.Profile, error) {
	p, err := f.CreateProfile()
	if err != nil {
		return nil, err
	}
	if err := f.db.Create(&models.UserRole{UserID: p.ID, Role: models.AppRoleAdmin}).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// BuildSurvey returns an unsaved published survey with two to four options.
func (f *Factory) BuildSurvey(author *models.Profile, pref *models.Preference) *models.Survey {
	desc := gofakeit.Sentence(12)
	s := &models.Survey{
		AuthorID:             author.ID,
		Title:                gofakeit.Question(),
		Description:          &desc,
		AllowMultipleAnswers: f.rnd.Intn(4) == 0,
		IsPublished:          true,
		CreatedAt:            f.pastTime(),
	}
	if pref != nil {
		s.PreferenceID = &pref.ID
	}
	n := 2 + f.rnd.Intn(3)
	for i := 0; i < n; i++ {
		s.Options = append(s.Options, models.SurveyOption{
			OptionText: gofakeit.Word(),
			Position:   i,
		})
	}
	return s
}

// CreateSurvey persists a survey built by BuildSurvey.
func (f *Factory) CreateSurvey(author *models.Profile, pref *models.Preference, overrides ...func(*models.Survey)) (*models.Survey, error) {
	s := f.BuildSurvey(author, pref)
	for _, o := range overrides {
		o(s)
	}
	if err := f.db.Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// CreateGroup persists a group with owner as its first member.
func (f *Factory) CreateGroup(owner *models.Profile, members ...*models.Profile) (*models.Group, error) {
	typ := models.GroupTypeFamily
	if f.rnd.Intn(2) == 0 {
		typ = models.GroupTypeCompany
	}
	g := &models.Group{
		Name:    gofakeit.Company(),
		Type:    typ,
		OwnerID: owner.ID,
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		rows := []models.GroupMember{{GroupID: g.ID, UserID: owner.ID, Role: models.GroupRoleOwner}}
		for _, m := range members {
			rows = append(rows, models.GroupMember{GroupID: g.ID, UserID: m.ID, Role: models.GroupRoleMember})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CastVote records a vote and bumps the option tally in one transaction.
func (f *Factory) CastVote(user *models.Profile, survey *models.Survey, option *models.SurveyOption) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		vote := models.UserVote{UserID: user.ID, SurveyID: survey.ID, OptionID: option.ID}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		option.VoteCount++
		return tx.Model(&models.SurveyOption{}).Where("id = ?", option.ID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error
	})
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.rnd.Intn(maxDays*24)) * time.Hour
	return time.Now().Add(-back - time.Duration(f.rnd.Intn(60))*time.Minute)
}
