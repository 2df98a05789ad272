package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePictureType(t *testing.T) {
	tests := []struct {
		contentType, filename string
		want                  bool
	}{
		{"image/PNG", "", true},
		{"", "cover.JPEG", true},
		{"application/pdf", "cover.webp", true},
		{"video/mp4", "clip.mp4", false},
		{"", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidatePictureType(tt.contentType, tt.filename), "%s %s", tt.contentType, tt.filename)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "pictures/ev1/cover.png", PictureKey("ev1", "../../cover.png"))
	assert.Equal(t, "reports/ev1/participants-r1.csv", ReportKey("ev1", "participants", "r1"))
	assert.Equal(t, "image/jpeg", ContentTypeForFilename("a.jpg"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("a.txt"))
}
