package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the envelope with a 200 transport status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{Rows: rows, Total: total})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// CachedResponse is SuccessResponse with a private Cache-Control max-age.
func CachedResponse(c echo.Context, data interface{}, maxAgeSeconds int) error {
	c.Response().Header().Set(echo.HeaderCacheControl, fmt.Sprintf("private, max-age=%d", maxAgeSeconds))
	return SuccessResponse(c, data)
}

func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// ServiceUnavailableResponse writes a real 503 so load balancers see the failure.
func ServiceUnavailableResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusServiceUnavailable, APIResponse{
		Status:  http.StatusServiceUnavailable,
		Message: http.StatusText(http.StatusServiceUnavailable),
		Data:    data,
	})
}

// AppErrorResponse writes err as a one-element error list. Errors that are
// not *AppError become a generic internal error.
func AppErrorResponse(c echo.Context, err error) error {
	appErr := asAppError(err)
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
