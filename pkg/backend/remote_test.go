package backend

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string       { return "fake api error: " + e.code }
func (e *fakeAPIError) ErrorCode() string    { return e.code }
func (e *fakeAPIError) ErrorMessage() string { return e.Error() }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}

var _ smithy.APIError = (*fakeAPIError)(nil)

func TestIsNotFoundRecognizesNoSuchKey(t *testing.T) {
	assert.True(t, isNotFound(&fakeAPIError{code: "NoSuchKey"}))
	assert.True(t, isNotFound(&fakeAPIError{code: "NotFound"}))
}

func TestIsNotFoundRejectsOtherCodes(t *testing.T) {
	assert.False(t, isNotFound(&fakeAPIError{code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("plain error, not an APIError")))
}

func TestRemoteFullKeyWithAndWithoutPrefix(t *testing.T) {
	noPrefix := &Remote{bucket: "b"}
	assert.Equal(t, "packs/aaaa.pack", noPrefix.fullKey("packs/aaaa.pack"))

	withPrefix := &Remote{bucket: "b", keyPrefix: "repo1"}
	assert.Equal(t, "repo1/packs/aaaa.pack", withPrefix.fullKey("packs/aaaa.pack"))
}
