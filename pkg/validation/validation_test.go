package validation

import (
	"strings"
	"testing"
)

func TestValidateCameraID(t *testing.T) {
	tests := []struct {
		name     string
		cameraID string
		wantErr  bool
	}{
		{"valid id", "cam-123", false},
		{"valid with underscore", "division_7_cam_4", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 101), true},
		{"invalid chars", "cam 123", true},
		{"path traversal", "../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCameraID(tt.cameraID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCameraID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid rtsp", "rtsp://10.0.0.5:554/live/cam.264", false},
		{"valid rtsps", "rtsps://10.0.0.5:554/live/cam.264", false},
		{"valid rtmp", "rtmp://media.example.com/live/cam", false},
		{"empty", "", true},
		{"http scheme", "http://example.com/stream", true},
		{"missing host", "rtsp:///live/cam.264", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSourceURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePublicURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://gateway.local:8080", false},
		{"valid https", "https://gateway.example.com", false},
		{"empty", "", true},
		{"rtsp scheme", "rtsp://gateway.local", true},
		{"missing host", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublicURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePublicURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	if err := ValidateStringLength("abc", 1, 5, "field"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStringLength("", 1, 5, "field"); err == nil {
		t.Error("expected error for too-short string")
	}
	if err := ValidateStringLength("abcdef", 1, 5, "field"); err == nil {
		t.Error("expected error for too-long string")
	}
}
