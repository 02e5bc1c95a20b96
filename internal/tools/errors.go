package tools

import (
	"fmt"

	"github.com/prizm-dev/prizm/internal/rpc"
)

// Error codes a tool-result text may be prefixed with.
const (
	CodeOutOfBounds       = "OUT_OF_BOUNDS"
	CodeLocked            = "LOCKED"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeConflict          = "CONFLICT"
	CodeMigrationRequired = "MIGRATION_REQUIRED"
	CodeTimeout           = "TIMEOUT"
	CodeCancelled         = "CANCELLED"
	CodeIOError           = "IO_ERROR"
)

func errResult(code, text string) *rpc.InvokeResponse {
	return &rpc.InvokeResponse{Text: fmt.Sprintf("[%s] %s", code, text), IsError: true}
}

func textResult(text string) *rpc.InvokeResponse {
	return &rpc.InvokeResponse{Text: text}
}

func structuredResult(text, structuredData string) *rpc.InvokeResponse {
	return &rpc.InvokeResponse{Text: text, StructuredData: structuredData}
}

func invalidInput(reason string) *rpc.InvokeResponse {
	return errResult(CodeInvalidInput, reason)
}

func ioErrorResult(err error) *rpc.InvokeResponse {
	return errResult(CodeIOError, err.Error())
}
