package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "bad input",
		UserMessage(Validationf("bad input")))

	assert.Equal(t, "failed to fetch feed: connection refused",
		UserMessage(&FetchError{URL: "https://example.com", Err: errors.New("connection refused")}))

	assert.Equal(t, "storage operation failed",
		UserMessage(&StoreError{Op: "put", Key: "https://example.com", Err: errors.New("disk full")}),
		"store internals are not shown to issuers")

	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
