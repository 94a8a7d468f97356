// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors returned by repositories. Services translate them into
// user-facing *models.AppError values.
var (
	ErrAlreadyVoted   = errors.New("user already voted on this survey")
	ErrDuplicateVote  = errors.New("user already voted for this option")
	ErrOptionMismatch = errors.New("option does not belong to survey")
	ErrAlreadyMember  = errors.New("user is already a member")
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognizes duplicate-key errors from translated GORM
// errors, raw pgx errors and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dedupe returns ids without blanks or repeats, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
