package models

import "strings"

// ReactionKind is one of the fixed emotive reactions.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
	ReactionLaugh   ReactionKind = "laugh"
	ReactionSad     ReactionKind = "sad"
)

// ReactionKinds lists every valid reaction kind.
var ReactionKinds = []ReactionKind{ReactionLike, ReactionDislike, ReactionLaugh, ReactionSad}

// Valid reports whether k is a known reaction kind.
func (k ReactionKind) Valid() bool {
	switch k {
	case ReactionLike, ReactionDislike, ReactionLaugh, ReactionSad:
		return true
	}
	return false
}

// ParseReactionKind normalizes s and returns the matching kind.
func ParseReactionKind(s string) (ReactionKind, bool) {
	k := ReactionKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Category is the topic category a generated draft is filed under.
type Category string

const (
	CategoryCooking       Category = "cooking"
	CategorySports        Category = "sports"
	CategoryPolitics      Category = "politics"
	CategoryRelationships Category = "relationships"
	CategoryScandals      Category = "scandals"
	CategoryMusic         Category = "music"
	CategorySpirituality  Category = "spirituality"
	CategoryScience       Category = "science"
	CategoryFun           Category = "fun"
)

var categoryPreferenceNames = map[Category]string{
	CategoryCooking:       "Cooking",
	CategorySports:        "Sports",
	CategoryPolitics:      "Politics",
	CategoryRelationships: "Relationships",
	CategoryScandals:      "Scandals",
	CategoryMusic:         "Music",
	CategorySpirituality:  "Spirituality",
	CategoryScience:       "Science",
	CategoryFun:           "Fun",
}

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCooking, CategorySports, CategoryPolitics, CategoryRelationships,
	CategoryScandals, CategoryMusic, CategorySpirituality, CategoryScience, CategoryFun,
}

// ParseCategory normalizes s and returns the matching category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	_, ok := categoryPreferenceNames[c]
	return c, ok
}

// PreferenceName is the catalog preference a category is published under.
func (c Category) PreferenceName() string {
	return categoryPreferenceNames[c]
}

// AppRole is a platform-wide role.
type AppRole string

const (
	AppRoleAdmin AppRole = "admin"
	AppRoleUser  AppRole = "user"
)

// GroupRole defines a member's role in a group.
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// CanManageMembers reports whether the role may add or remove members.
func (r GroupRole) CanManageMembers() bool {
	return r == GroupRoleOwner || r == GroupRoleAdmin
}

// GroupType distinguishes family and company groups.
type GroupType string

const (
	GroupTypeFamily  GroupType = "family"
	GroupTypeCompany GroupType = "company"
)

// Valid reports whether t is a known group type.
func (t GroupType) Valid() bool {
	return t == GroupTypeFamily || t == GroupTypeCompany
}
