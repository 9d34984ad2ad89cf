package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/policy"
)

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// internalError logs err with the request id and hides it from the client.
func (h *Handler) internalError(c *gin.Context, err error, message string) {
	h.Log.Error().
		Err(err).
		Str("request_id", c.GetString("requestID")).
		Str("path", c.Request.URL.Path).
		Msg(message)
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, message)
}

// respondDenial maps a policy denial onto 403 or 400.
func (h *Handler) respondDenial(c *gin.Context, err error) {
	var denial *policy.Denial
	if !errors.As(err, &denial) {
		h.internalError(c, err, "Authorization check failed")
		return
	}
	if errors.Is(err, policy.ErrInvalidTransition) {
		respondError(c, http.StatusBadRequest, denial.Reason)
		return
	}
	respondError(c, http.StatusForbidden, denial.Reason)
}

func parseObjectID(raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindingMessage turns validator errors into a short client message.
func bindingMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}
	fe := verrs[0]
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return fallback
	case "email":
		return "A valid email is required"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "Field"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
