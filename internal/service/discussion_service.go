package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/authz"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	"github.com/githubpalak/gas-utility-portal/internal/storage"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// DiscussionService manages comments and attachments on service requests.
type DiscussionService struct {
	requests    *RequestService
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	blobs       storage.BlobStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	clock       Clock
}

// DiscussionDependencies bundles collaborators for the discussion service.
type DiscussionDependencies struct {
	Requests       *RequestService
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	Blobs          storage.BlobStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          Clock
}

// AttachmentUpload is an incoming file.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// NewDiscussionService constructs the service.
func NewDiscussionService(deps DiscussionDependencies) *DiscussionService {
	return &DiscussionService{
		requests:    deps.Requests,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		blobs:       deps.Blobs,
		dispatcher:  deps.Dispatcher,
		logger:      defaultLogger(deps.Logger),
		clock:       defaultClock(deps.Clock),
	}
}

// ListComments returns the thread oldest first. Internal notes are removed
// for actors who may not see them.
func (s *DiscussionService) ListComments(ctx context.Context, actor *domain.Identity, requestID string) ([]domain.Comment, error) {
	req, err := s.requests.Get(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return authz.VisibleComments(actor, comments), nil
}

// AddComment appends a comment. A non-staff request for an internal note is
// stored as a public comment.
func (s *DiscussionService) AddComment(ctx context.Context, actor *domain.Identity, requestID, text string, internal bool) (*domain.Comment, error) {
	req, err := s.requests.Get(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("invalid comment", map[string]any{"text": "this field may not be blank"})
	}

	comment := &domain.Comment{
		RequestID:  req.ID,
		AuthorID:   actor.ID,
		Text:       text,
		IsInternal: authz.EffectiveInternal(actor, internal),
		CreatedAt:  s.clock(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, notFoundOr(err, "service request", map[string]any{"id": requestID})
	}

	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:      events.EventCommentAdded,
		RequestID: req.ID,
		Reference: req.RequestID,
		Actor:     events.ActorFrom(actor),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(comment.Text, 120),
		},
	})
	return comment, nil
}

// ListAttachments returns attachment metadata for a request.
func (s *DiscussionService) ListAttachments(ctx context.Context, actor *domain.Identity, requestID string) ([]domain.Attachment, error) {
	req, err := s.requests.Get(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return attachments, nil
}

// AddAttachment stores the payload in the blob store and records its metadata.
func (s *DiscussionService) AddAttachment(ctx context.Context, actor *domain.Identity, requestID string, upload *AttachmentUpload) (*domain.Attachment, error) {
	req, err := s.requests.Get(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if upload == nil || upload.Body == nil {
		return nil, apperrors.NewValidationError("no file provided", map[string]any{"file": "this field is required"})
	}

	name := filepath.Base(strings.TrimSpace(upload.FileName))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "attachment"
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, size, err := s.blobs.Put(ctx, req.ID, name, upload.Body)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperrors.NewValidationError("file too large", map[string]any{"file": err.Error()})
		}
		return nil, apperrors.NewInternalError(err)
	}

	attachment := &domain.Attachment{
		RequestID:    req.ID,
		FileRef:      key,
		FileName:     name,
		ContentType:  contentType,
		SizeBytes:    size,
		UploadedByID: actor.ID,
		UploadedAt:   s.clock(),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphaned attachment blob", zap.String("file_ref", key), zap.Error(delErr))
		}
		return nil, notFoundOr(err, "service request", map[string]any{"id": requestID})
	}

	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:      events.EventAttachmentAdded,
		RequestID: req.ID,
		Reference: req.RequestID,
		Actor:     events.ActorFrom(actor),
		Payload: events.AttachmentAddedPayload{
			AttachmentID: attachment.ID,
			FileName:     attachment.FileName,
			SizeBytes:    attachment.SizeBytes,
		},
	})
	return attachment, nil
}

// OpenAttachment returns the metadata and a reader for the stored payload.
// The caller closes the reader.
func (s *DiscussionService) OpenAttachment(ctx context.Context, actor *domain.Identity, requestID, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	req, err := s.requests.Get(ctx, actor, requestID)
	if err != nil {
		return nil, nil, err
	}
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, notFoundOr(err, "attachment", map[string]any{"id": attachmentID})
	}
	if attachment.RequestID != req.ID {
		return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
	}
	body, err := s.blobs.Open(ctx, attachment.FileRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound("attachment content", map[string]any{"id": attachmentID})
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	return attachment, body, nil
}
