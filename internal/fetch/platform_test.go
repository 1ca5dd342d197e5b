package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://job-boards.greenhouse.io/doordashusa/jobs/7063751", PlatformGreenhouse},
		{"https://boards.greenhouse.io/company/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/company/job-id", PlatformLever},
		{"https://acme.wd5.myworkdayjobs.com/en-US/careers/job/123", PlatformWorkday},
		{"https://jobs.ashbyhq.com/acme/abc", PlatformAshby},
		{"https://GREENHOUSE.IO/jobs/1", PlatformGreenhouse},
		{"https://careers.example.com/jobs/1", PlatformUnknown},
		{"https://notgreenhouse.io.example.com/", PlatformUnknown},
		{"://bad", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestContentSelectors(t *testing.T) {
	assert.Equal(t, ".job__description.body", ContentSelectors(PlatformGreenhouse)[0])
	assert.Equal(t, ".posting-page", ContentSelectors(PlatformLever)[0])
	assert.Contains(t, ContentSelectors(PlatformUnknown), ".job-description")
	assert.Contains(t, ContentSelectors(PlatformUnknown), "main")
}

func TestNoiseSelectors(t *testing.T) {
	common := NoiseSelectors(PlatformUnknown)
	assert.Contains(t, common, "form")

	greenhouse := NoiseSelectors(PlatformGreenhouse)
	assert.Greater(t, len(greenhouse), len(common))
	assert.Contains(t, greenhouse, "#usa_self_id_section")
	assert.NotContains(t, common, "#usa_self_id_section")
}
