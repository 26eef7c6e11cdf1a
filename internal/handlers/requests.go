package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/logging"
	"github.com/bianchibruno/comp0034-fyp/internal/models"
	"github.com/bianchibruno/comp0034-fyp/internal/mykafka"
	"github.com/bianchibruno/comp0034-fyp/internal/service/search"
	"github.com/bianchibruno/comp0034-fyp/internal/util"
)

type RequestHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Search   *search.Service
}

// requestPayload is the explicit field allow-list for create and partial
// update. Pointer fields distinguish "absent" from "empty", which is what
// gives PATCH its only-supplied-fields semantics.
type requestPayload struct {
	CaseType               *string `json:"case_type"`
	Status                 *string `json:"status"`
	RequestReceivedYear    *string `json:"request_received_year"`
	RequestReceivedQuarter *string `json:"request_received_quarter"`
	RequestReceivedMonth   *string `json:"request_received_month"`
	CaseActiveDaysGrouped  *string `json:"case_active_days_grouped"`
}

// missingRequired returns the names of required fields that are absent or
// empty in the payload.
func (p *requestPayload) missingRequired() []string {
	var missing []string
	required := []struct {
		name  string
		value *string
	}{
		{"case_type", p.CaseType},
		{"status", p.Status},
		{"request_received_year", p.RequestReceivedYear},
		{"request_received_quarter", p.RequestReceivedQuarter},
	}
	for _, f := range required {
		if f.value == nil || *f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (p *requestPayload) apply(req *models.Request) {
	if p.CaseType != nil {
		req.CaseType = *p.CaseType
	}
	if p.Status != nil {
		req.Status = *p.Status
	}
	if p.RequestReceivedYear != nil {
		req.RequestReceivedYear = *p.RequestReceivedYear
	}
	if p.RequestReceivedQuarter != nil {
		req.RequestReceivedQuarter = *p.RequestReceivedQuarter
	}
	if p.RequestReceivedMonth != nil {
		req.RequestReceivedMonth = *p.RequestReceivedMonth
	}
	if p.CaseActiveDaysGrouped != nil {
		req.CaseActiveDaysGrouped = *p.CaseActiveDaysGrouped
	}
}

func (h *RequestHandler) publish(c echo.Context, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "request_events", fmt.Sprint(event["requestID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *RequestHandler) index(c echo.Context, req *models.Request) {
	if h.Search == nil {
		return
	}
	if err := h.Search.IndexRequest(c.Request().Context(), req); err != nil {
		logging.FromContext(c.Request().Context()).Error("es index failed", "request_id", req.ID, "error", err)
	}
}

// filterFields are the columns GetRequests accepts as exact-match query
// parameters.
var filterFields = []string{"case_type", "status", "request_received_year", "request_received_quarter"}

func (h *RequestHandler) GetRequests(c echo.Context) error {
	q := h.DB.Model(&models.Request{}).Order("id ASC")
	for _, field := range filterFields {
		if v := c.QueryParam(field); v != "" {
			q = q.Where(field+" = ?", v)
		}
	}

	requests := []models.Request{}
	if err := q.Find(&requests).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("list requests failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}
	return c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) GetRequest(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Request not found"})
	}

	var req models.Request
	if err := h.DB.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Request not found"})
		}
		logging.FromContext(c.Request().Context()).Error("get request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}
	return c.JSON(http.StatusOK, req)
}

func (h *RequestHandler) CreateRequest(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "request_create")

	var payload requestPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	if missing := payload.missingRequired(); len(missing) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing required fields: " + strings.Join(missing, ", "),
		})
	}

	var req models.Request
	payload.apply(&req)

	if err := h.DB.Create(&req).Error; err != nil {
		l.Error("create failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	h.publish(c, map[string]interface{}{
		"type":      "request_created",
		"requestID": req.ID,
		"case_type": req.CaseType,
	})
	h.index(c, &req)

	l.Info("request created", "request_id", req.ID)
	return c.JSON(http.StatusCreated, req)
}

func (h *RequestHandler) PatchRequest(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "request_patch")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Request not found"})
	}

	var payload requestPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	var req models.Request
	if err := h.DB.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Request not found"})
		}
		l.Error("patch failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	payload.apply(&req)

	if err := h.DB.Save(&req).Error; err != nil {
		l.Error("patch failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	h.publish(c, map[string]interface{}{
		"type":      "request_updated",
		"requestID": req.ID,
		"status":    req.Status,
	})
	h.index(c, &req)

	l.Info("request updated", "request_id", req.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Request updated.",
		"data":    req,
	})
}

func (h *RequestHandler) DeleteRequest(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "request_delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Request not found"})
	}

	var req models.Request
	if err := h.DB.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Request not found"})
		}
		l.Error("delete failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	if err := h.DB.Delete(&req).Error; err != nil {
		l.Error("delete failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	h.publish(c, map[string]interface{}{
		"type":      "request_deleted",
		"requestID": req.ID,
	})
	if h.Search != nil {
		if err := h.Search.RemoveRequest(c.Request().Context(), req.ID); err != nil {
			l.Error("es remove failed", "request_id", req.ID, "error", err)
		}
	}

	l.Info("request deleted", "request_id", req.ID)
	return c.JSON(http.StatusAccepted, echo.Map{"message": "Request deleted"})
}

func (h *RequestHandler) SearchRequests(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Missing query parameter: q"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, requests, err := h.Search.Search(c.Request().Context(), q, from, size)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("search failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "requests": requests})
}
