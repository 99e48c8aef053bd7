package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/solacewell/gatekeeper/engine"
	"github.com/solacewell/gatekeeper/modqueue"
	"github.com/solacewell/gatekeeper/quota"
)

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type checkContentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCheckContent(c echo.Context) error {
	var req checkContentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	verdict := s.engine.ClassifyContent(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, verdict)
}

type moderateRequest struct {
	SubjectID string `json:"subject_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

func (s *Server) handleAutoModerate(c echo.Context) error {
	var req moderateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SubjectID == "" || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id and user_id are required")
	}
	verdict := s.engine.AutoModerate(c.Request().Context(), req.SubjectID, req.UserID, req.Text)
	return c.JSON(http.StatusOK, verdict)
}

type submitRequest struct {
	UserID     string `json:"user_id"`
	SubjectID  string `json:"subject_id"`
	Resource   string `json:"resource"`
	ActionKind string `json:"action_kind"`
	Text       string `json:"text"`
	IdemKey    string `json:"idempotency_key"`
}

func (s *Server) handleSubmitContent(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Resource == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and resource are required")
	}
	res, err := s.engine.SubmitContent(c.Request().Context(), engine.SubmitParams{
		UserID:     req.UserID,
		SubjectID:  req.SubjectID,
		Resource:   req.Resource,
		ActionKind: req.ActionKind,
		Text:       req.Text,
		IdemKey:    req.IdemKey,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handlePendingQueue(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}
	items, err := s.engine.Queue.Pending(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

type resolveRequest struct {
	Decision    string  `json:"decision"`
	ModeratorID string  `json:"moderator_id"`
	Notes       *string `json:"notes"`
	Content     *string `json:"content"`
}

func (s *Server) handleResolveQueueItem(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err := s.engine.ResolveQueueItem(c.Request().Context(), modqueue.ResolveParams{
		QueueID:     c.Param("id"),
		ModeratorID: req.ModeratorID,
		Decision:    modqueue.Decision(req.Decision),
		Notes:       req.Notes,
		NewContent:  req.Content,
	})
	switch {
	case errors.Is(err, modqueue.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "queue item not found")
	case errors.Is(err, modqueue.ErrAlreadyResolved):
		return echo.NewHTTPError(http.StatusConflict, "queue item already resolved with a different decision")
	case errors.Is(err, modqueue.ErrModeratorRequired), errors.Is(err, modqueue.ErrContentRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) handleQueueLog(c echo.Context) error {
	entries, err := s.engine.Queue.Log(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}

type checkUsageRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}

func (s *Server) handleCheckUsage(c echo.Context) error {
	var req checkUsageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}
	res, err := s.engine.CheckUsagePermission(c.Request().Context(), req.UserID, req.Resource, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type recordUsageRequest struct {
	UserID      string `json:"user_id"`
	Resource    string `json:"resource"`
	Amount      int    `json:"amount"`
	IdemKey     string `json:"idempotency_key"`
	JournalText string `json:"journal_text"`
	DwellTimeMS int64  `json:"dwell_time_ms"`
}

func (s *Server) handleRecordUsage(c echo.Context) error {
	var req recordUsageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}
	ctx := c.Request().Context()

	// completions feed the rapid-completion heuristic on later calls
	if req.Resource == quota.ResourceRitualCompletions {
		dwell := time.Duration(req.DwellTimeMS) * time.Millisecond
		if err := s.directory.RecordCompletion(ctx, req.UserID, time.Now(), dwell); err != nil {
			s.logger.Error("recording completion event failed", "userID", req.UserID, "err", err)
		}
	}

	out, err := s.engine.RecordUsage(ctx, engine.RecordUsageParams{
		UserID:      req.UserID,
		Resource:    req.Resource,
		Amount:      req.Amount,
		IdemKey:     req.IdemKey,
		JournalText: req.JournalText,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type checkRateLimitRequest struct {
	UserID     string `json:"user_id"`
	ActionKind string `json:"action_kind"`
}

func (s *Server) handleCheckRateLimit(c echo.Context) error {
	var req checkRateLimitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res := s.engine.CheckRateLimit(c.Request().Context(), req.UserID, req.ActionKind)
	return c.JSON(http.StatusOK, map[string]any{
		"allowed":          res.Allowed,
		"throttle_seconds": res.ThrottleSeconds(),
	})
}

func (s *Server) handleUserQueueHistory(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}
	items, err := s.engine.Queue.UserHistory(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleUserViolations(c echo.Context) error {
	violations, err := s.engine.Violations.Active(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"violations": violations})
}

type setTierRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) handleSetUserTier(c echo.Context) error {
	var req setTierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	userID := c.Param("id")
	tier := quota.NormalizeTier(req.Tier)
	if err := s.directory.SetUserTier(ctx, userID, string(tier)); err != nil {
		return err
	}
	if err := s.engine.Quota.InvalidateTier(ctx, userID); err != nil {
		s.logger.Warn("tier cache invalidation failed", "userID", userID, "err", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"tier": string(tier)})
}
