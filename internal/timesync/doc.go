// Package timesync keeps an NTP-corrected clock for result timestamps.
//
// Until the first successful Sync the clock is considered unsynced and
// EpochMillis returns 0, so results published before time is known carry
// no timestamp. The node re-syncs in the background every time the network
// link comes up; a failed sync keeps the last known offset.
package timesync
