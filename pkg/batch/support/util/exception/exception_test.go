package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

type quotaError struct {
	Msg string
}

func (e *quotaError) Error() string {
	return fmt.Sprintf("quotaError: %s", e.Msg)
}

func TestNewBatchError(t *testing.T) {
	cause := errors.New("bucket not reachable")
	be := exception.NewBatchError("store", "failed to upload series", cause, false, true)

	assert.Equal(t, "store", be.Module)
	assert.Equal(t, "failed to upload series", be.Message)
	assert.Equal(t, cause, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[store] failed to upload series: bucket not reachable")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("sheet", "attachment %s has no header", "report.xlsx")
	assert.False(t, be1.IsRetryable())
	assert.False(t, be1.IsSkippable())
	assert.Nil(t, be1.Unwrap())
	assert.Contains(t, be1.Error(), "[sheet] attachment report.xlsx has no header")

	be2 := exception.NewBatchErrorf("mail", "rate limited", true)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())

	be3 := exception.NewBatchErrorf("sheet", "bad row %d", 5, true, false)
	assert.False(t, be3.IsRetryable())
	assert.True(t, be3.IsSkippable())

	cause := errors.New("503 backend error")
	be4 := exception.NewBatchErrorf("mail", "list messages", true, cause)
	assert.True(t, be4.IsRetryable())
	assert.False(t, be4.IsSkippable())
	assert.Equal(t, cause, be4.Unwrap())

	cause6 := errors.New("corrupt zip")
	be6 := exception.NewBatchErrorf("sheet", "open workbook", true, true, cause6)
	assert.True(t, be6.IsRetryable())
	assert.True(t, be6.IsSkippable())
	assert.Equal(t, cause6, be6.Unwrap())
}

func TestIsTemporaryAndIsFatal(t *testing.T) {
	retryable := exception.NewBatchError("mail", "quota", errors.New("429"), false, true)
	assert.True(t, exception.IsTemporary(retryable))
	assert.False(t, exception.IsFatal(retryable))

	fatal := exception.NewBatchError("store", "decode", errors.New("invalid argument"), false, false)
	assert.False(t, exception.IsTemporary(fatal))
	assert.True(t, exception.IsFatal(fatal))

	skippable := exception.NewBatchError("sheet", "bad attachment", nil, true, false)
	assert.False(t, exception.IsTemporary(skippable))
	assert.False(t, exception.IsFatal(skippable))

	wrapped := fmt.Errorf("step failed: %w", retryable)
	assert.True(t, exception.IsTemporary(wrapped))
	assert.True(t, exception.IsBatchError(wrapped))

	assert.True(t, exception.IsTemporary(errors.New("dial tcp: i/o timeout")))
	assert.True(t, exception.IsTemporary(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.True(t, exception.IsFatal(errors.New("permission denied")))
	assert.True(t, exception.IsFatal(context.Canceled))
	assert.False(t, exception.IsTemporary(nil))
	assert.False(t, exception.IsFatal(nil))
}

func TestIsErrorOfType(t *testing.T) {
	exception.RegisterErrorType("QuotaExceeded", &quotaError{})

	qe := &quotaError{Msg: "daily limit"}
	wrapped := exception.NewBatchError("mail", "gmail failure", qe, false, true)
	assert.True(t, exception.IsErrorOfType(wrapped, "*exception_test.quotaError"))
	assert.True(t, exception.IsErrorOfType(wrapped, "gmail failure"))
	assert.True(t, exception.IsErrorOfType(wrapped, "quotaError: daily limit"))

	deep := fmt.Errorf("level 2: %w", wrapped)
	assert.True(t, exception.IsErrorOfType(deep, "*exception_test.quotaError"))
	assert.False(t, exception.IsErrorOfType(deep, "NonExistentError"))

	assert.True(t, exception.IsErrorOfType(fmt.Errorf("x: %w", context.DeadlineExceeded), "context.DeadlineExceeded"))
	assert.False(t, exception.IsErrorOfType(nil, "any"))
}

func TestRegisterErrorType_Panics(t *testing.T) {
	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x")) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil", nil) })
	assert.True(t, exception.IsErrorTypeRegistered("io.EOF"))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "short", exception.ExtractErrorMessage(exception.NewBatchError("m", "short", errors.New("long cause"), false, false)))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
