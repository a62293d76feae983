package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatKeys(t *testing.T) {
	assert.Equal(t, "schedule:user-1", FormatScheduleChannel("user-1"))
	assert.Equal(t, "schedule:user-1:snapshot", FormatScheduleSnapshotKey("user-1"))
	assert.Equal(t, "user:user-1:presence", FormatPresenceKey("user-1"))
}
