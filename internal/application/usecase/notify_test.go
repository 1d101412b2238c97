package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shadow3301/rssbot/internal/domain/feed"
)

func TestFormatNotification(t *testing.T) {
	it := feed.Item{Title: "Multi\nline\ntitle", Link: "  https://example.com/x \n"}
	got := FormatNotification("My Feed", it)
	assert.Equal(t, "My Feed\nMultilinetitle: https://example.com/x", got)
}

func TestFanoutOrderItemsThenDestinations(t *testing.T) {
	transport := &recordingTransport{}
	items := []feed.Item{
		{Title: "one", Link: "https://example.com/1"},
		{Title: "two", Link: "https://example.com/2"},
	}
	Fanout(context.Background(), transport, discardLogger(), "Feed", items, []int64{100, 200})

	require.Len(t, transport.delivered, 4)
	assert.Equal(t, int64(100), transport.delivered[0].dest)
	assert.Equal(t, int64(200), transport.delivered[1].dest)
	assert.Contains(t, transport.delivered[0].text, "one")
	assert.Contains(t, transport.delivered[1].text, "one")
	assert.Contains(t, transport.delivered[2].text, "two")
	assert.Contains(t, transport.delivered[3].text, "two")
}

func TestFanoutDeliveryFailureDoesNotBlockOthers(t *testing.T) {
	transport := &recordingTransport{failFor: map[int64]error{100: errors.New("gone")}}
	items := []feed.Item{
		{Title: "one", Link: "https://example.com/1"},
		{Title: "two", Link: "https://example.com/2"},
	}
	Fanout(context.Background(), transport, discardLogger(), "Feed", items, []int64{100, 200})

	require.Len(t, transport.delivered, 2)
	for _, d := range transport.delivered {
		assert.Equal(t, int64(200), d.dest)
	}
}
