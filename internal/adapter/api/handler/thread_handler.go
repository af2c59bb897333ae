package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"novaland/internal/usecase"
	"novaland/pkg/response"
)

type ThreadHandler struct {
	threadUseCase *usecase.ThreadUseCase
}

func NewThreadHandler(threadUseCase *usecase.ThreadUseCase) *ThreadHandler {
	return &ThreadHandler{
		threadUseCase: threadUseCase,
	}
}

type createThreadRequest struct {
	PropertyID  string `json:"property_id" validate:"required"`
	InitialNote string `json:"initial_note"`
}

type sendNoteRequest struct {
	Body string `json:"body" validate:"required"`
}

// CreateThread opens (or returns) the negotiation for a property
func (h *ThreadHandler) CreateThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	wallet := c.Get("wallet").(string)

	thread, err := h.threadUseCase.CreateThread(c.Request().Context(), wallet, usecase.CreateThreadInput{
		PropertyID:  req.PropertyID,
		InitialNote: req.InitialNote,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, thread)
}

// ListThreads returns the caller's threads, optionally filtered by role
func (h *ThreadHandler) ListThreads(c echo.Context) error {
	wallet := c.Get("wallet").(string)
	role := c.QueryParam("role")
	limit, offset := parsePagination(c)

	threads, total, err := h.threadUseCase.ListThreads(c.Request().Context(), wallet, role, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, threads, total, limit, offset)
}

func (h *ThreadHandler) GetThread(c echo.Context) error {
	wallet := c.Get("wallet").(string)

	thread, err := h.threadUseCase.GetThread(c.Request().Context(), wallet, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, thread)
}

func (h *ThreadHandler) ListMessages(c echo.Context) error {
	wallet := c.Get("wallet").(string)
	limit, offset := parsePagination(c)

	messages, total, err := h.threadUseCase.ListMessages(c.Request().Context(), wallet, c.Param("id"), limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, limit, offset)
}

// SendNote posts a plain chat message to the thread
func (h *ThreadHandler) SendNote(c echo.Context) error {
	var req sendNoteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	wallet := c.Get("wallet").(string)

	message, err := h.threadUseCase.SendNote(c.Request().Context(), wallet, c.Param("id"), req.Body)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkThreadRead clears the caller's unread counter
func (h *ThreadHandler) MarkThreadRead(c echo.Context) error {
	wallet := c.Get("wallet").(string)

	if err := h.threadUseCase.MarkThreadRead(c.Request().Context(), wallet, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

func parsePagination(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
