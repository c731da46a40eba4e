package dispatch

import (
	"errors"
	"net/http"

	"github.com/evanreis/predictex/internal/domain"
)

// StatusType is the coarse outcome of a command.
type StatusType string

const (
	StatusSuccess StatusType = "SUCCESS"
	StatusError   StatusType = "ERROR"
)

// Response is the dispatcher's reply to a single command.
type Response struct {
	StatusType    StatusType `json:"statusType"`
	StatusMessage string     `json:"statusMessage"`
	StatusCode    int        `json:"statusCode"`
	Data          any        `json:"data,omitempty"`
}

func ok(message string, data any) Response {
	return Response{
		StatusType:    StatusSuccess,
		StatusMessage: message,
		StatusCode:    http.StatusOK,
		Data:          data,
	}
}

func created(message string, data any) Response {
	return Response{
		StatusType:    StatusSuccess,
		StatusMessage: message,
		StatusCode:    http.StatusCreated,
		Data:          data,
	}
}

// failure maps a domain error to an ERROR response. NotFound sentinels
// map to 404, everything else to 400.
func failure(err error) Response {
	code := http.StatusBadRequest
	if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrSymbolNotFound) {
		code = http.StatusNotFound
	}
	return Response{
		StatusType:    StatusError,
		StatusMessage: err.Error(),
		StatusCode:    code,
	}
}
