package httpdto

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

func NewValidationErrorResponse(fields map[string]string) Response[ValidationErrorDTO] {
	return Response[ValidationErrorDTO]{
		Success: false,
		Data:    ValidationErrorDTO{Fields: fields},
		Error:   "validation failed",
		Code:    "VALIDATION_FAILED",
	}
}
