package types

import "time"

// FormSnapshot is a point-in-time view of one open or cached form
type FormSnapshot struct {
	SerialID           int64  `json:"serial_id"`
	AssetName          string `json:"asset"`
	Group              string `json:"group,omitempty"`
	Depth              int    `json:"depth"`
	Covered            bool   `json:"covered"`
	Paused             bool   `json:"paused"`
	PauseCoveredUIForm bool   `json:"pause_covered_ui_form"`
	Open               bool   `json:"open"`
	Released           bool   `json:"released,omitempty"`
}

// GroupSnapshot is a group's stack, top first
type GroupSnapshot struct {
	Name   string         `json:"name"`
	Depth  int            `json:"depth"`
	Paused bool           `json:"paused"`
	Forms  []FormSnapshot `json:"forms"`
}

// CacheSnapshot lists cached forms, most recently used first
type CacheSnapshot struct {
	Capacity int            `json:"capacity"`
	Entries  []FormSnapshot `json:"entries"`
}

// Snapshot is the whole manager state
type Snapshot struct {
	Groups  []GroupSnapshot `json:"groups"`
	Cache   CacheSnapshot   `json:"cache"`
	Loading []string        `json:"loading"`
}

// Stats contains manager statistics
type Stats struct {
	Groups       int   `json:"groups"`
	OpenForms    int   `json:"open_forms"`
	CachedForms  int   `json:"cached_forms"`
	Capacity     int   `json:"cache_capacity"`
	LoadsPending int   `json:"loads_pending"`
	NextSerialID int64 `json:"next_serial_id"`
}

// FormEvent reports one lifecycle transition
type FormEvent struct {
	ID         string    `json:"id"`
	Transition string    `json:"transition"`
	SerialID   int64     `json:"serial_id"`
	AssetName  string    `json:"asset"`
	Group      string    `json:"group,omitempty"`
	Depth      int       `json:"depth"`
	Timestamp  time.Time `json:"timestamp"`
}
