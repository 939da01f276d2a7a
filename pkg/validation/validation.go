package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// CameraIDRegex validates camera ID format
	CameraIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateCameraID validates camera ID
func ValidateCameraID(cameraID string) error {
	if cameraID == "" {
		return fmt.Errorf("camera ID is required")
	}
	if len(cameraID) > 100 {
		return fmt.Errorf("camera ID is too long (max 100 characters)")
	}
	if !CameraIDRegex.MatchString(cameraID) {
		return fmt.Errorf("invalid camera ID format")
	}
	return nil
}

// ValidateSourceURL validates an upstream camera source URL
func ValidateSourceURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("source URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid source URL format: %w", err)
	}
	if u.Scheme != "rtsp" && u.Scheme != "rtsps" && u.Scheme != "rtmp" {
		return fmt.Errorf("invalid source URL scheme (must be rtsp, rtsps, or rtmp)")
	}
	if u.Host == "" {
		return fmt.Errorf("source URL must have a host")
	}
	return nil
}

// ValidatePublicURL validates an externally reachable HTTP URL
func ValidatePublicURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
