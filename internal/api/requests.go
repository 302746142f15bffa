package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

type RegisterRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

func (r *RegisterRequest) fromForm(v url.Values) {
	r.Name = v.Get("name")
	r.Email = v.Get("email")
}

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

func (r *ChatRequest) fromForm(v url.Values) {
	r.Message = v.Get("message")
	r.UserID = v.Get("userId")
}

type GetMessagesRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (r *GetMessagesRequest) fromForm(v url.Values) {
	r.UserID = v.Get("userId")
}

type formRequest interface {
	fromForm(url.Values)
}

// decodeRequest fills dst from a JSON or urlencoded body. An empty body
// leaves dst zero-valued so the validator reports the missing fields.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst formRequest) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return errInvalidBody
		}
		dst.fromForm(r.PostForm)
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errInvalidBody
	}
	return nil
}

// RequestValidator wraps go-playground/validator for the request DTOs.
type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validator.Struct(i)
}
