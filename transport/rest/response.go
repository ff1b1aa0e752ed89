package rest

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"recordbin/errors"
	"recordbin/logging"
)

// errorBody 错误响应
type errorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details map[string]any   `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, logger logging.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(r.Context(), "encode response", logging.Error(err))
	}
}

// respondError 按 AppError 错误码选择状态码；5xx 不向调用方暴露内部信息
func respondError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	code := errors.GetErrorCode(err)
	status := errors.HTTPStatus(code)
	body := errorBody{Code: code, Message: err.Error()}

	var appErr errors.IError
	if stderrors.As(err, &appErr) {
		body.Message = appErr.Message()
		if d := appErr.Details(); len(d) > 0 {
			body.Details = d
		}
	}

	fields := []logging.Field{
		logging.String("request_id", middleware.GetReqID(r.Context())),
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
		logging.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", fields...)
		body.Message = http.StatusText(status)
		body.Details = nil
	} else {
		logger.Debug(r.Context(), "request rejected", fields...)
	}
	respondJSON(w, r, logger, status, body)
}

func badRequest(msg string) error {
	return errors.NewError(errors.ErrCodeInvalidInput, msg)
}
