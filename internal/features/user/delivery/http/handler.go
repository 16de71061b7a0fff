package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"birthday-app-backend/internal/features/user/models"
	"birthday-app-backend/internal/features/user/repository"
	"birthday-app-backend/internal/features/user/service"
)

// User-facing rejection messages. Deliberately generic: the reason a
// signature check failed must not leak.
const (
	msgValidateError = "Authorization failed. Try reopening the application."
	msgUnknownError  = "An unknown error occurred. Try again later."
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	user := router.Group("/user")
	{
		user.PUT("", h.CreateUser)
		user.GET("", h.GetUsers)
		user.GET("/search", h.SearchUsers)
		user.POST("/validate_init_data", h.ValidateInitData)
		user.POST("/birthday", h.SetBirthday)
		user.POST("/photo_url", h.SetPhotoURL)
	}
}

type basicResponse struct {
	Result   bool   `json:"result"`
	Detailed string `json:"detailed,omitempty"`
}

type provisionedResponse struct {
	Result bool `json:"result"`
	*models.UserResponse
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var input models.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, basicResponse{Result: false, Detailed: err.Error()})
		return
	}

	user, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrNotRegistered) {
			c.JSON(http.StatusOK, basicResponse{Result: false})
			return
		}
		c.JSON(http.StatusInternalServerError, basicResponse{Result: false, Detailed: msgUnknownError})
		return
	}

	c.JSON(http.StatusOK, provisionedResponse{Result: true, UserResponse: user})
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	sel := repository.Selector{
		ID:       queryInt64(c, "id"),
		ChatID:   queryInt64(c, "chat_id"),
		Username: c.Query("username"),
	}

	if !sel.Empty() {
		user, err := h.service.Get(c.Request.Context(), sel)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				c.JSON(http.StatusOK, nil)
				return
			}
			c.JSON(http.StatusInternalServerError, basicResponse{Result: false, Detailed: msgUnknownError})
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}

	limit := queryIntDefault(c, "limit", 10)
	offset := queryIntDefault(c, "offset", 0)

	users, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, basicResponse{Result: false, Detailed: msgUnknownError})
		return
	}
	if users == nil {
		users = []*models.UserResponse{}
	}

	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.service.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, basicResponse{Result: false, Detailed: msgUnknownError})
		return
	}
	if users == nil {
		users = []*models.UserResponse{}
	}

	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) ValidateInitData(c *gin.Context) {
	var input models.ValidateInitDataInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, basicResponse{Result: false, Detailed: msgValidateError})
		return
	}

	provisioned, err := h.service.ValidateInitData(c.Request.Context(), input.InitData)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadSignature):
			c.JSON(http.StatusOK, basicResponse{Result: false, Detailed: msgValidateError})
		case errors.Is(err, service.ErrNotRegistered):
			c.JSON(http.StatusOK, basicResponse{Result: false, Detailed: msgUnknownError})
		default:
			c.JSON(http.StatusOK, basicResponse{Result: false, Detailed: msgUnknownError})
		}
		return
	}

	c.JSON(http.StatusOK, provisionedResponse{Result: true, UserResponse: provisioned.User})
}

func (h *UserHandler) SetBirthday(c *gin.Context) {
	var input models.SetBirthdayInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, basicResponse{Result: false, Detailed: err.Error()})
		return
	}

	if err := h.service.SetBirthday(c.Request.Context(), input.UserID, input.Birthday); err != nil {
		c.JSON(http.StatusOK, basicResponse{Result: false})
		return
	}

	c.JSON(http.StatusOK, basicResponse{Result: true})
}

func (h *UserHandler) SetPhotoURL(c *gin.Context) {
	var input models.SetPhotoURLInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, basicResponse{Result: false, Detailed: err.Error()})
		return
	}

	if err := h.service.SetPhoto(c.Request.Context(), input.UserID, input.PhotoURL); err != nil {
		c.JSON(http.StatusOK, basicResponse{Result: false})
		return
	}

	c.JSON(http.StatusOK, basicResponse{Result: true})
}

func queryInt64(c *gin.Context, key string) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func queryIntDefault(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
