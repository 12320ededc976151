package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the dashboard core.
// Remote errors carry the HTTP status (0 when no response arrived) and the
// message the backend supplied, if any.

// Generic user-facing messages used when a backend supplies none.
const (
	MsgLoginFailed  = "Erro ao fazer login. Verifique suas credenciais."
	MsgQueryFailed  = "Erro ao carregar dados. Verifique sua conexão."
	MsgSyncFailed   = "Erro ao sincronizar dados. Tente novamente."
	MsgUploadFailed = "Erro ao enviar o arquivo CSV. Use colunas order_id;created_at;status;value;payment_method (delimitador ;)."
)

// ErrAuth indicates POST /login failed (bad credentials or unreachable backend).
type ErrAuth struct {
	Status  int
	Message string
	Err     error
}

func (e *ErrAuth) Error() string { return remoteError("auth", e.Status, e.Message, e.Err) }
func (e *ErrAuth) Unwrap() error { return e.Err }

// ErrSync indicates the ingestion trigger failed.
type ErrSync struct {
	Status  int
	Message string
	Err     error
}

func (e *ErrSync) Error() string { return remoteError("sync", e.Status, e.Message, e.Err) }
func (e *ErrSync) Unwrap() error { return e.Err }

// ErrUpload indicates the CSV upload or its ingestion failed.
type ErrUpload struct {
	Status  int
	Message string
	Err     error
}

func (e *ErrUpload) Error() string { return remoteError("upload", e.Status, e.Message, e.Err) }
func (e *ErrUpload) Unwrap() error { return e.Err }

// ErrQuery indicates a metrics or time-series fetch failed.
type ErrQuery struct {
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *ErrQuery) Error() string {
	return remoteError("query "+e.Operation, e.Status, e.Message, e.Err)
}
func (e *ErrQuery) Unwrap() error { return e.Err }

// ErrValidation indicates a local validation error. It never reaches the network.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an operation that needs a session ran without one.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrRateLimited indicates a sync trigger arrived before the limiter allowed another.
type ErrRateLimited struct {
	Action string
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Action)
}

func remoteError(kind string, status int, message string, err error) string {
	switch {
	case message != "" && status != 0:
		return fmt.Sprintf("%s failed [%d]: %s", kind, status, message)
	case message != "":
		return fmt.Sprintf("%s failed: %s", kind, message)
	case err != nil && status != 0:
		return fmt.Sprintf("%s failed [%d]: %v", kind, status, err)
	case err != nil:
		return fmt.Sprintf("%s failed: %v", kind, err)
	case status != 0:
		return fmt.Sprintf("%s failed with status %d", kind, status)
	}
	return kind + " failed"
}

// RemoteMessage returns the backend-supplied message carried anywhere in err's chain.
func RemoteMessage(err error) string {
	var (
		auth   *ErrAuth
		sync   *ErrSync
		upload *ErrUpload
		query  *ErrQuery
	)
	switch {
	case errors.As(err, &auth) && auth.Message != "":
		return auth.Message
	case errors.As(err, &upload) && upload.Message != "":
		return upload.Message
	case errors.As(err, &sync) && sync.Message != "":
		return sync.Message
	case errors.As(err, &query) && query.Message != "":
		return query.Message
	}
	return ""
}

// UserMessage prefers the remote-supplied message and falls back otherwise.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := RemoteMessage(err); msg != "" {
		return msg
	}
	return fallback
}
