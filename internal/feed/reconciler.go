package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/observability"
	"pulsevote/internal/repository"
)

// Notice texts shown to the viewer after a mutation.
const (
	NoticeSignIn          = "Please sign in"
	NoticeAlreadyVoted    = "You already voted for this option"
	NoticeSingleVote      = "You can only vote once on this survey"
	NoticeVoteRecorded    = "Vote recorded!"
	NoticeVoteFailed      = "Failed to record vote"
	NoticeReactionRemoved = "Reaction removed"
	NoticeReactionUpdated = "Reaction updated"
	NoticeReactionFailed  = "Failed to update reaction"
	NoticeCommentAdded    = "Comment added!"
	NoticeCommentFailed   = "Failed to add comment"
)

// MaxCommentLength bounds comment content in characters.
const MaxCommentLength = 2000

// ErrEmptyComment is returned for whitespace-only comments. Nothing is
// written and no notice is emitted.
var ErrEmptyComment = errors.New("comment is empty")

// Notice is the transient message a mutation produces.
type Notice struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Notifier receives exactly one notice per mutation.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// NoticeRecorder keeps the last notice. It serves one request.
type NoticeRecorder struct {
	Last *Notice
}

// Notify records n.
func (r *NoticeRecorder) Notify(_ context.Context, n Notice) {
	r.Last = &n
}

// Message returns the recorded message or "".
func (r *NoticeRecorder) Message() string {
	if r.Last == nil {
		return ""
	}
	return r.Last.Message
}

// Store is the write side used by the reconciler.
type Store interface {
	CastVote(ctx context.Context, vote *models.UserVote) error
	UpsertReaction(ctx context.Context, userID, surveyID string, kind models.ReactionKind) (*models.Reaction, error)
	DeleteReaction(ctx context.Context, userID, surveyID string) error
	CreateComment(ctx context.Context, comment *models.Comment) error
}

// EventSink fans confirmed mutations out to other consumers.
type EventSink interface {
	Broadcast(ctx context.Context, eventType string, payload map[string]any)
}

// Reconciler applies viewer mutations to the store and, once the store
// confirms, patches the viewer's projection to match.
type Reconciler struct {
	store    Store
	loader   *Aggregator
	notifier Notifier
	events   EventSink
}

// NewReconciler creates a reconciler. loader is used by Refresh and may be
// nil when Refresh is not needed. events may be nil.
func NewReconciler(store Store, loader *Aggregator, notifier Notifier, events EventSink) *Reconciler {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notice) {})
	}
	return &Reconciler{store: store, loader: loader, notifier: notifier, events: events}
}

func (r *Reconciler) notify(ctx context.Context, ok bool, msg string) {
	r.notifier.Notify(ctx, Notice{Success: ok, Message: msg})
}

func (r *Reconciler) emit(ctx context.Context, eventType string, payload map[string]any) {
	if r.events != nil {
		r.events.Broadcast(ctx, eventType, payload)
	}
}

func (r *Reconciler) logFailure(ctx context.Context, op, surveyID string, err error) {
	observability.GlobalLogger.WarnContext(ctx, "mutation failed",
		slog.String("op", op),
		slog.String("survey_id", surveyID),
		slog.String("error", err.Error()),
	)
}

// Vote casts the viewer's vote for optionID. Local preconditions are checked
// against the projection before any store call; the store transaction is the
// backstop for votes racing past them.
func (r *Reconciler) Vote(ctx context.Context, p *Projection, surveyID, optionID string) error {
	viewer := p.ViewerID()
	if viewer == "" {
		r.notify(ctx, false, NoticeSignIn)
		return models.NewUnauthorizedError(NoticeSignIn)
	}

	s, ok := p.Get(surveyID)
	if !ok {
		r.notify(ctx, false, NoticeVoteFailed)
		return models.NewNotFoundError("Survey", surveyID)
	}
	if s.HasVoted(optionID) {
		r.notify(ctx, false, NoticeAlreadyVoted)
		return models.NewConflictError(NoticeAlreadyVoted)
	}
	if !s.AllowMultipleAnswers && len(s.UserVotes) > 0 {
		r.notify(ctx, false, NoticeSingleVote)
		return models.NewConflictError(NoticeSingleVote)
	}
	if _, ok := s.Option(optionID); !ok {
		r.notify(ctx, false, NoticeVoteFailed)
		return models.NewValidationError("Option does not belong to this survey")
	}

	err := r.store.CastVote(ctx, &models.UserVote{UserID: viewer, SurveyID: surveyID, OptionID: optionID})
	observability.RecordMutation("vote", err == nil)
	if err != nil {
		r.logFailure(ctx, "vote", surveyID, err)
		r.notify(ctx, false, NoticeVoteFailed)
		switch {
		case errors.Is(err, repository.ErrAlreadyVoted):
			return models.NewConflictError(NoticeSingleVote)
		case errors.Is(err, repository.ErrDuplicateVote):
			return models.NewConflictError(NoticeAlreadyVoted)
		case errors.Is(err, repository.ErrOptionMismatch):
			return models.NewValidationError("Option does not belong to this survey")
		}
		return storeError(err)
	}

	p.applyVote(surveyID, optionID)
	r.notify(ctx, true, NoticeVoteRecorded)
	r.emit(ctx, notifications.EventVoteRecorded, map[string]any{"survey_id": surveyID, "option_id": optionID})
	return nil
}

// React toggles the viewer's reaction. Reacting with the current kind
// removes it; any other kind replaces it.
func (r *Reconciler) React(ctx context.Context, p *Projection, surveyID string, kind models.ReactionKind) error {
	viewer := p.ViewerID()
	if viewer == "" {
		r.notify(ctx, false, NoticeSignIn)
		return models.NewUnauthorizedError(NoticeSignIn)
	}
	if !kind.Valid() {
		r.notify(ctx, false, NoticeReactionFailed)
		return models.NewValidationError("Unknown reaction kind")
	}
	s, ok := p.Get(surveyID)
	if !ok {
		r.notify(ctx, false, NoticeReactionFailed)
		return models.NewNotFoundError("Survey", surveyID)
	}

	if s.UserReaction != nil && *s.UserReaction == kind {
		err := r.store.DeleteReaction(ctx, viewer, surveyID)
		observability.RecordMutation("reaction", err == nil)
		if err != nil {
			r.logFailure(ctx, "unreact", surveyID, err)
			r.notify(ctx, false, NoticeReactionFailed)
			return storeError(err)
		}
		p.clearReaction(surveyID)
		r.notify(ctx, true, NoticeReactionRemoved)
		r.emit(ctx, notifications.EventReactionUpdated, map[string]any{"survey_id": surveyID, "reaction": nil})
		return nil
	}

	stored, err := r.store.UpsertReaction(ctx, viewer, surveyID, kind)
	observability.RecordMutation("reaction", err == nil)
	if err != nil {
		r.logFailure(ctx, "react", surveyID, err)
		r.notify(ctx, false, NoticeReactionFailed)
		return storeError(err)
	}
	p.setReaction(surveyID, *stored)
	r.notify(ctx, true, NoticeReactionUpdated)
	r.emit(ctx, notifications.EventReactionUpdated, map[string]any{"survey_id": surveyID, "reaction": string(kind)})
	return nil
}

// Comment appends a comment. Whitespace-only content is a no-op that
// returns ErrEmptyComment.
func (r *Reconciler) Comment(ctx context.Context, p *Projection, surveyID, text string) error {
	viewer := p.ViewerID()
	if viewer == "" {
		r.notify(ctx, false, NoticeSignIn)
		return models.NewUnauthorizedError(NoticeSignIn)
	}
	content := strings.TrimSpace(text)
	if content == "" {
		return ErrEmptyComment
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		r.notify(ctx, false, NoticeCommentFailed)
		return models.NewValidationError("Comment must be at most 2000 characters")
	}
	if _, ok := p.Get(surveyID); !ok {
		r.notify(ctx, false, NoticeCommentFailed)
		return models.NewNotFoundError("Survey", surveyID)
	}

	comment := &models.Comment{UserID: viewer, SurveyID: surveyID, Content: content}
	err := r.store.CreateComment(ctx, comment)
	observability.RecordMutation("comment", err == nil)
	if err != nil {
		r.logFailure(ctx, "comment", surveyID, err)
		r.notify(ctx, false, NoticeCommentFailed)
		return storeError(err)
	}
	p.appendComment(surveyID, *comment)
	r.notify(ctx, true, NoticeCommentAdded)
	r.emit(ctx, notifications.EventCommentCreated, map[string]any{"survey_id": surveyID, "comment_id": comment.ID})
	return nil
}

// storeError keeps an AppError raised by the store, such as a survey deleted
// since the projection was loaded, and wraps anything else as internal.
func storeError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}

// Refresh re-reads surveyID from the store and replaces the local mirror.
// A survey the viewer can no longer see is dropped from the projection.
func (r *Reconciler) Refresh(ctx context.Context, p *Projection, surveyID string) error {
	if r.loader == nil {
		return errors.New("reconciler has no loader")
	}
	fresh, err := r.loader.load(ctx, p.ViewerID(), surveyID)
	if err != nil {
		if repository.IsNotFound(err) {
			p.remove(surveyID)
		}
		return err
	}
	p.replace(fresh)
	return nil
}
