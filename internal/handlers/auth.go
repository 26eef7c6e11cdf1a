package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/hash"
	"github.com/bianchibruno/comp0034-fyp/internal/logging"
	"github.com/bianchibruno/comp0034-fyp/internal/middleware/auth"
	"github.com/bianchibruno/comp0034-fyp/internal/models"
	"github.com/bianchibruno/comp0034-fyp/internal/mykafka"
	"github.com/bianchibruno/comp0034-fyp/internal/token"
)

// Local part is alphanumeric with at most one inner dot or underscore, TLD
// is 2-3 word characters. Anything fancier is rejected.
var emailRe = regexp.MustCompile(`(?i)^[a-z0-9]+([._]?[a-z0-9]+)?@\w+\.\w{2,3}$`)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register failed", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Missing required field: email"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Missing required field: password"})
	}
	if !emailRe.MatchString(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid email format"})
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         "user",
	}
	// The unique index on email decides the race; no check-then-insert.
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("register failed", "status", 409, "reason", "email taken")
			return c.JSON(http.StatusConflict, echo.Map{"message": "User already exists. Please Log in."})
		}
		l.Error("register failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("user registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully."})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Missing email or password"})
	}
	// Missing fields share the 401 of bad credentials so the response does
	// not reveal which case occurred.
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Missing email or password"})
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("login failed", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Incorrect email or password."})
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login failed", "status", 401, "user_id", user.ID)
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Incorrect email or password."})
	}

	tok, err := h.Tokens.Issue(user.ID)
	if err != nil {
		l.Error("login failed", "status", 500, "reason", "cannot sign token", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("login successful", "user_id", user.ID)
	// 201 on login is a documented quirk of the API contract.
	return c.JSON(http.StatusCreated, echo.Map{
		"user_id": user.ID,
		"token":   tok,
	})
}

func (h *AuthHandler) SecureData(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or missing token."})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Secure data for %s", user.Email),
	})
}

func (h *AuthHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_delete_user")

	email := c.Param("email")

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		}
		l.Error("delete user failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		l.Error("delete user failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred. Please try again."})
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":   "user_deleted",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("user deleted", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
