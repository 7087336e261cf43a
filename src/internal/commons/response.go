package commons

type Response[T any] struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Code    ErrorKind `json:"code,omitempty"`
	Data    *T        `json:"data,omitempty"`
	Errors  []string  `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

// Failure builds the failed envelope for err together with err itself, so a
// service can `return commons.Failure[T](err)`.
func Failure[T any](err error) (Response[T], error) {
	kind := KindOf(err)
	message := MessageOf(err)

	response := ErrorResponse[T](message)
	response.Code = kind
	if detail := DetailOf(err); detail != "" {
		response.Errors = []string{detail}
	}

	return response, err
}
