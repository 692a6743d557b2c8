package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ReturnsTheWrappedKind(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad: %s", "input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindRateLimited, KindOf(RateLimited("slow down")))
	assert.Equal(t, KindUpstreamFetch, KindOf(UpstreamFetch(errors.New("timeout"), "fetch lacounty")))
	assert.Equal(t, KindRepository, KindOf(Repository(errors.New("conn refused"), "load facility")))
	assert.Equal(t, KindConflict, KindOf(Conflict("already exists")))
}

func TestKindOf_UnknownForPlainErrors(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestKindOf_WalksTheUnwrapChain(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NotFound("facility FA1"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestError_FormatsWithAndWithoutCause(t *testing.T) {
	assert.Equal(t, "bad input", Validation("bad input").Error())

	withCause := Repository(errors.New("conn refused"), "load facility")
	assert.Equal(t, "load facility: conn refused", withCause.Error())
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("conn refused")
	err := Repository(cause, "load facility")
	assert.Equal(t, cause, errors.Unwrap(err))
}
