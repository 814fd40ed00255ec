package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/api/dto"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/service"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// RequestsHandler manages service requests and their discussion.
type RequestsHandler struct {
	requests   *service.RequestService
	discussion *service.DiscussionService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requests *service.RequestService, discussion *service.DiscussionService) *RequestsHandler {
	return &RequestsHandler{requests: requests, discussion: discussion}
}

// Create POST /api/service-requests/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateServiceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.requests.Create(c.UserContext(), actor, service.RequestCreateInput{
		CustomerID:     req.CustomerID,
		CategoryID:     req.CategoryID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		ServiceAddress: req.ServiceAddress,
		MeterID:        req.MeterID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestResponse(created)})
}

// List GET /api/service-requests/requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	page, err := h.requests.List(c.UserContext(), actor, parseRequestQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pageResponse(page, requestResponse)})
}

// Get GET /api/service-requests/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	req, err := h.requests.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// Update PATCH /api/service-requests/requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var body dto.UpdateServiceRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.Update(c.UserContext(), actor, c.Params("id"), service.RequestUpdateInput{
		CategoryID:     body.CategoryID,
		Title:          body.Title,
		Description:    body.Description,
		Priority:       body.Priority,
		ServiceAddress: body.ServiceAddress,
		MeterID:        body.MeterID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// ChangeStatus POST /api/service-requests/requests/:id/change-status.
func (h *RequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var body dto.ChangeStatusRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.ChangeStatus(c.UserContext(), actor, c.Params("id"), body.Status, body.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// Assign POST /api/service-requests/requests/:id/assign.
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var body dto.AssignRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := h.requests.Assign(c.UserContext(), actor, c.Params("id"), body.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// History GET /api/service-requests/requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	entries, err := h.requests.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.StatusHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.StatusHistoryResponse{
			ID:             entry.ID,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			ChangedByID:    entry.ChangedByID,
			ChangedAt:      entry.ChangedAt,
			Comment:        entry.Comment,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListComments GET /api/service-requests/requests/:id/comments.
func (h *RequestsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	comments, err := h.discussion.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /api/service-requests/requests/:id/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var body dto.CommentRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	comment, err := h.discussion.AddComment(c.UserContext(), actor, c.Params("id"), body.Text, body.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListAttachments GET /api/service-requests/requests/:id/attachments.
func (h *RequestsHandler) ListAttachments(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	attachments, err := h.discussion.ListAttachments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /api/service-requests/requests/:id/attachments (multipart field "file").
func (h *RequestsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	// a missing file is passed on as a nil upload so the access check runs first
	var upload *service.AttachmentUpload
	if header, err := c.FormFile("file"); err == nil {
		file, err := header.Open()
		if err != nil {
			return apperrors.NewInternalError(fmt.Errorf("open upload: %w", err))
		}
		defer file.Close()
		upload = &service.AttachmentUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Body:        file,
		}
	}

	attachment, err := h.discussion.AddAttachment(c.UserContext(), actor, c.Params("id"), upload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// DownloadAttachment GET /api/service-requests/requests/:id/attachments/:attachmentID.
func (h *RequestsHandler) DownloadAttachment(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	attachment, body, err := h.discussion.OpenAttachment(c.UserContext(), actor, c.Params("id"), c.Params("attachmentID"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	return c.SendStream(body, int(attachment.SizeBytes))
}

func parseRequestQuery(c *fiber.Ctx) service.RequestListFilter {
	filter := service.RequestListFilter{
		CustomerID:   c.Query("customer"),
		AssignedToID: c.Query("assigned_to"),
		Unassigned:   parseBool(c.Query("unassigned")),
		CategoryID:   c.Query("category"),
		Search:       c.Query("search"),
		OrderBy:      c.Query("ordering"),
		Pagination:   parsePagination(c),
	}
	for _, part := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.RequestStatus(part))
	}
	for _, part := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.RequestPriority(part))
	}
	return filter
}

func requestResponse(req *domain.ServiceRequest) dto.ServiceRequestResponse {
	return dto.ServiceRequestResponse{
		ID:             req.ID,
		RequestID:      req.RequestID,
		CustomerID:     req.CustomerID,
		CategoryID:     req.CategoryID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		StatusLabel:    req.Status.Label(),
		Priority:       req.Priority,
		PriorityLabel:  req.Priority.Label(),
		AssignedToID:   req.AssignedToID,
		ServiceAddress: req.ServiceAddress,
		MeterID:        req.MeterID,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
		CompletedAt:    req.CompletedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		Text:       comment.Text,
		IsInternal: comment.IsInternal,
		CreatedAt:  comment.CreatedAt,
	}
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:           attachment.ID,
		FileName:     attachment.FileName,
		ContentType:  attachment.ContentType,
		SizeBytes:    attachment.SizeBytes,
		UploadedByID: attachment.UploadedByID,
		UploadedAt:   attachment.UploadedAt,
		URL:          fmt.Sprintf("/api/service-requests/requests/%s/attachments/%s", attachment.RequestID, attachment.ID),
	}
}
