package handler

import (
	"errors"
	"net/http"
	"reflect"
	"sync"

	"shopdesk/internal/middleware"
	"shopdesk/internal/model"
	"shopdesk/internal/service"
	"shopdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Guard builds the authentication middleware shared by all handlers
type Guard struct {
	Secret []byte
}

// Authenticated accepts any valid token
func (g Guard) Authenticated() gin.HandlerFunc {
	return middleware.RequireRole(g.Secret)
}

// Admin accepts shop owners only
func (g Guard) Admin() gin.HandlerFunc {
	return middleware.RequireRole(g.Secret, model.RoleAdmin)
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// numeric tags (gte, gt) on decimal fields compare the float value
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("shop_password", func(fl validator.FieldLevel) bool {
			return service.ValidPassword(fl.Field().String())
		})
	})
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return service.Actor{}, false
	}
	return service.Actor{UserID: id.UserID, OwnerID: id.OwnerID, Role: id.Role}, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidLogin), errors.Is(err, service.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrOverpayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrAssistantUnavailable), errors.Is(err, service.ErrMailUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Unexpected errors are logged and hidden from the caller.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "Internal server error"
	case http.StatusServiceUnavailable:
		// upstream details (API keys, SMTP replies) stay in the logs
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("dependency unavailable")
		msg = "Service temporarily unavailable"
	}
	c.JSON(status, response.Error(status, msg))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
