package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	inputsanitize "storefront-hub/internal/api/sanitize"
	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
	"storefront-hub/internal/service"
)

type RaffleHandler struct {
	raffleService *service.RaffleService
}

type raffleRequest struct {
	Title             string    `json:"title" binding:"required"`
	Description       string    `json:"description"`
	TicketProductID   *string   `json:"ticket_product_id"`
	PrizeProductID    *string   `json:"prize_product_id"`
	WinnersCount      int       `json:"winners_count" binding:"required"`
	MaxEntriesPerUser int       `json:"max_entries_per_user" binding:"required"`
	EntryStartAt      time.Time `json:"entry_start_at" binding:"required"`
	EntryEndAt        time.Time `json:"entry_end_at" binding:"required"`
	DrawAt            time.Time `json:"draw_at" binding:"required"`
}

type raffleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type raffleEntryRequest struct {
	Count int `json:"count" binding:"required"`
}

func NewRaffleHandler(raffleService *service.RaffleService) *RaffleHandler {
	return &RaffleHandler{raffleService: raffleService}
}

func RegisterRaffleRoutes(group *gin.RouterGroup, raffleService *service.RaffleService) {
	if raffleService == nil {
		return
	}

	handler := NewRaffleHandler(raffleService)
	raffles := group.Group("/raffles")
	raffles.Use(middleware.JWTAuth())

	raffles.GET("", handler.List)
	raffles.GET("/my/entries", handler.MyEntries)
	raffles.GET("/:raffleId", handler.Get)
	raffles.GET("/:raffleId/result", handler.Result)
	raffles.POST(
		"/:raffleId/enter",
		middleware.RateLimit("user_id", 30, time.Minute),
		handler.Enter,
	)

	raffles.POST("", middleware.AuditLog("raffle.create", "raffle"), handler.Create)
	raffles.PUT("/:raffleId", middleware.AuditLog("raffle.update", "raffle"), handler.Update)
	raffles.PATCH("/:raffleId/status", handler.UpdateStatus)
	raffles.POST("/:raffleId/draws", handler.Draw)
	raffles.GET("/:raffleId/participants", handler.Participants)
}

// List
// @Summary List
// @Description Auto-generated endpoint documentation for List.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/raffles [get]
func (h *RaffleHandler) List(c *gin.Context) {
	page, size, pagination := pageQuery(c)

	filter := repository.RaffleListFilter{Pagination: pagination}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.RaffleStatus(strings.ToUpper(raw))
		if !model.ValidRaffleStatus(status) {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid status")
			return
		}
		filter.Status = &status
	}
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		cleaned := inputsanitize.Text(keyword)
		filter.Keyword = &cleaned
	}

	raffles, total, err := h.raffleService.List(c.Request.Context(), filter)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}

	response.Paginated(c, raffles, page, size, total)
}

// Get
// @Summary Get
// @Description Auto-generated endpoint documentation for Get.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/raffles/{raffleId} [get]
func (h *RaffleHandler) Get(c *gin.Context) {
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}

	raffle, err := h.raffleService.Get(c.Request.Context(), raffleID)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Success(c, raffle)
}

// Create
// @Summary Create
// @Description Auto-generated endpoint documentation for Create.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/raffles [post]
func (h *RaffleHandler) Create(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	var req raffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	svcReq, ok := h.toServiceRequest(c, req)
	if !ok {
		return
	}

	raffle, err := h.raffleService.Create(c.Request.Context(), svcReq)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Success(c, raffle)
}

// Update
// @Summary Update
// @Description Auto-generated endpoint documentation for Update.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/raffles/{raffleId} [put]
func (h *RaffleHandler) Update(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}

	var req raffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	svcReq, ok := h.toServiceRequest(c, req)
	if !ok {
		return
	}

	raffle, err := h.raffleService.Update(c.Request.Context(), raffleID, svcReq)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Success(c, raffle)
}

// UpdateStatus
// @Summary UpdateStatus
// @Description Auto-generated endpoint documentation for UpdateStatus.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/raffles/{raffleId}/status [patch]
func (h *RaffleHandler) UpdateStatus(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}

	var req raffleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	operatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	status := model.RaffleStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	raffle, err := h.raffleService.UpdateStatus(c.Request.Context(), raffleID, status, &operatorID)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Success(c, raffle)
}

// Enter
// @Summary Enter
// @Description Auto-generated endpoint documentation for Enter.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/raffles/{raffleId}/enter [post]
func (h *RaffleHandler) Enter(c *gin.Context) {
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req raffleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	entry, err := h.raffleService.SubmitEntry(c.Request.Context(), raffleID, userID, req.Count)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Success(c, entry)
}

// Draw
// @Summary Draw
// @Description Auto-generated endpoint documentation for Draw.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/raffles/{raffleId}/draws [post]
func (h *RaffleHandler) Draw(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}
	operatorID, ok := currentUserID(c)
	if !ok {
		return
	}

	winners, err := h.raffleService.ExecuteDraw(c.Request.Context(), raffleID, &operatorID)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Success(c, winners)
}

// Result
// @Summary Result
// @Description Auto-generated endpoint documentation for Result.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/raffles/{raffleId}/result [get]
func (h *RaffleHandler) Result(c *gin.Context) {
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}

	participants, winners, err := h.raffleService.GetResult(c.Request.Context(), raffleID)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}

	type resultEntry struct {
		UserID  string `json:"user_id"`
		Name    string `json:"name"`
		Rank    int    `json:"rank"`
		DrawnAt string `json:"drawn_at"`
	}
	results := make([]resultEntry, len(winners))
	for i, w := range winners {
		results[i] = resultEntry{
			UserID:  w.UserID.String(),
			Name:    participants[i].Name,
			Rank:    w.Rank,
			DrawnAt: w.DrawnAt.UTC().Format(time.RFC3339),
		}
	}
	response.Success(c, results)
}

// Participants
// @Summary Participants
// @Description Auto-generated endpoint documentation for Participants.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/raffles/{raffleId}/participants [get]
func (h *RaffleHandler) Participants(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	raffleID, ok := pathUUID(c, "raffleId")
	if !ok {
		return
	}

	page, size, pagination := pageQuery(c)
	participants, total, err := h.raffleService.ListParticipants(c.Request.Context(), raffleID, pagination)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Paginated(c, participants, page, size, total)
}

// MyEntries
// @Summary MyEntries
// @Description Auto-generated endpoint documentation for MyEntries.
// @Tags raffle
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/raffles/my/entries [get]
func (h *RaffleHandler) MyEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, size, pagination := pageQuery(c)
	entries, total, err := h.raffleService.ListEntriesByUser(c.Request.Context(), userID, pagination)
	if err != nil {
		handleRaffleServiceError(c, err)
		return
	}
	response.Paginated(c, entries, page, size, total)
}

func (h *RaffleHandler) toServiceRequest(c *gin.Context, req raffleRequest) (service.CreateRaffleRequest, bool) {
	out := service.CreateRaffleRequest{
		Title:             inputsanitize.Text(req.Title),
		Description:       inputsanitize.Description(req.Description),
		WinnersCount:      req.WinnersCount,
		MaxEntriesPerUser: req.MaxEntriesPerUser,
		EntryStartAt:      req.EntryStartAt,
		EntryEndAt:        req.EntryEndAt,
		DrawAt:            req.DrawAt,
	}

	for _, ref := range []struct {
		raw  *string
		dst  **uuid.UUID
		name string
	}{
		{req.TicketProductID, &out.TicketProductID, "ticket_product_id"},
		{req.PrizeProductID, &out.PrizeProductID, "prize_product_id"},
	} {
		if ref.raw == nil || strings.TrimSpace(*ref.raw) == "" {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(*ref.raw))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid "+ref.name)
			return service.CreateRaffleRequest{}, false
		}
		*ref.dst = &id
	}

	return out, true
}

func handleRaffleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRaffleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrRaffleNotFound, "raffle not found")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition, "status transition not allowed")
	case errors.Is(err, service.ErrRaffleNotActive):
		response.Fail(c, http.StatusConflict, response.ErrRaffleNotActive, "raffle is not accepting entries")
	case errors.Is(err, service.ErrEntryWindowClosed):
		response.Fail(c, http.StatusBadRequest, response.ErrEntryWindowClosed, "entry window is closed")
	case errors.Is(err, service.ErrEntryLimitExceeded):
		response.Fail(c, http.StatusBadRequest, response.ErrEntryLimitExceeded, "entry limit exceeded")
	case errors.Is(err, service.ErrTicketStockExhausted):
		response.Fail(c, http.StatusConflict, response.ErrStockExhausted, "ticket stock exhausted")
	case errors.Is(err, service.ErrRaffleNotClosed):
		response.Fail(c, http.StatusConflict, response.ErrRaffleNotClosed, "raffle must be closed before drawing")
	case errors.Is(err, service.ErrRaffleAlreadyDrawn):
		response.Fail(c, http.StatusConflict, response.ErrRaffleAlreadyDrawn, "raffle already drawn")
	case errors.Is(err, service.ErrNoEntrants):
		response.Fail(c, http.StatusConflict, response.ErrRaffleNoEntrants, "raffle has no entrants")
	case errors.Is(err, service.ErrRaffleNotDrawn):
		response.Fail(c, http.StatusConflict, response.ErrRaffleNotDrawn, "raffle result not available")
	case errors.Is(err, service.ErrRaffleNotEditable):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition, "raffle is not editable")
	case errors.Is(err, service.ErrInvalidRaffleInput), errors.Is(err, service.ErrInvalidRaffleSchedule):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
