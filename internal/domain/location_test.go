package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewer_CanTrack(t *testing.T) {
	t.Parallel()

	assert.True(t, Viewer{UserID: "c1"}.CanTrack("c1"))
	assert.False(t, Viewer{UserID: "c2"}.CanTrack("c1"))
	assert.False(t, Viewer{}.CanTrack(""), "anonymous never matches an order without owner")
	assert.True(t, Viewer{UserID: "ops", Admin: true}.CanTrack("c1"))
}
