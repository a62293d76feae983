package utils

/**
 * This file contains utility functions to format the keys and channel names
 * used with Redis. It avoids having to call "fmt.Sprintf(...)" with the same
 * format spec every time, potentially confusing the key format.
 */

import "fmt"

// Channel the row-level schedule change events are published on, one per
// owning user.
func FormatScheduleChannel(ownerID string) string {
	return fmt.Sprintf("schedule:%s", ownerID)
}

// Key holding the cached schedule snapshot of a user.
func FormatScheduleSnapshotKey(ownerID string) string {
	return fmt.Sprintf("schedule:%s:snapshot", ownerID)
}

// Key tracking a user's realtime presence (socket id etc).
func FormatPresenceKey(userID string) string {
	return fmt.Sprintf("user:%s:presence", userID)
}
