package repository

import (
	"context"
	"errors"

	"pulsevote/internal/models"
	"pulsevote/internal/observability"

	"gorm.io/gorm"
)

// GroupRepository defines persistence for private groups and their members.
type GroupRepository interface {
	CreateWithOwner(ctx context.Context, group *models.Group) error
	ListForUser(ctx context.Context, userID string) ([]models.Group, error)
	GetByID(ctx context.Context, id string) (*models.Group, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	AddMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	Delete(ctx context.Context, groupID string) error
}

type groupRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db, log: observability.NewRepoLogger("survey_groups")}
}

// CreateWithOwner inserts the group and its owner membership together.
func (r *groupRepository) CreateWithOwner(ctx context.Context, group *models.Group) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(group).Error; err != nil {
			return err
		}
		owner := models.GroupMember{
			GroupID: group.ID,
			UserID:  group.OwnerID,
			Role:    models.GroupRoleOwner,
		}
		if err := tx.Omit("User").Create(&owner).Error; err != nil {
			return err
		}
		group.Members = []models.GroupMember{owner}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"group_id": group.ID})
	return nil
}

func (r *groupRepository) membersAndCount(db *gorm.DB) *gorm.DB {
	return db.
		Select("survey_groups.*, (SELECT COUNT(*) FROM surveys WHERE surveys.group_id = survey_groups.id) AS survey_count").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_members.joined_at ASC")
		}).
		Preload("Members.User")
}

// ListForUser returns the groups the user belongs to, newest first.
func (r *groupRepository) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	defer observability.TrackQuery("select", "survey_groups")()

	var groups []models.Group
	err := r.membersAndCount(r.db.WithContext(ctx).Model(&models.Group{})).
		Where("survey_groups.id IN (?)",
			r.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Order("survey_groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	err := r.membersAndCount(r.db.WithContext(ctx).Model(&models.Group{})).
		Where("survey_groups.id = ?", id).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", id)
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group member", userID)
		}
		return nil, err
	}
	return &member, nil
}

func (r *groupRepository) AddMember(ctx context.Context, member *models.GroupMember) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(member).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyMember
		}
		r.log.LogError(ctx, err, "add_member")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"group_id": member.GroupID, "user_id": member.UserID})
	return nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "remove_member")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Group member", userID)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"group_id": groupID, "user_id": userID})
	return nil
}

// Delete removes the group with its members and surveys. Child rows are
// deleted explicitly so the result does not depend on FK cascade support.
func (r *groupRepository) Delete(ctx context.Context, groupID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		surveyIDs := tx.Model(&models.Survey{}).Select("id").Where("group_id = ?", groupID)
		for _, child := range []interface{}{
			&models.UserVote{}, &models.Reaction{}, &models.Comment{}, &models.SurveyOption{},
		} {
			if err := tx.Where("survey_id IN (?)", surveyIDs).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Survey{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", groupID).Delete(&models.Group{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Group", groupID)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"group_id": groupID})
	return nil
}
