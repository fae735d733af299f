package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxAssetNameLength = 256
	MaxGroupNameLength = 64
)

var (
	// GroupNamePattern allows alphanumeric, hyphens, underscores
	GroupNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// AssetNamePattern allows slash separated segments of alphanumerics,
	// dots, hyphens and underscores
	AssetNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+(/[a-zA-Z0-9._-]+)*$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateGroupName validates a group name
func ValidateGroupName(name string) error {
	if err := ValidateString(name, "group name", 1, MaxGroupNameLength); err != nil {
		return err
	}
	if !GroupNamePattern.MatchString(name) {
		return fmt.Errorf("group name %q contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", name)
	}
	return nil
}

// ValidateAssetName validates an asset name. Asset names double as relative
// lookup paths, so parent segments are rejected.
func ValidateAssetName(name string) error {
	if err := ValidateString(name, "asset name", 1, MaxAssetNameLength); err != nil {
		return err
	}
	if !AssetNamePattern.MatchString(name) {
		return fmt.Errorf("asset name %q contains invalid characters", name)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "." || segment == ".." {
			return fmt.Errorf("asset name %q must not contain relative segments", name)
		}
	}
	return nil
}
