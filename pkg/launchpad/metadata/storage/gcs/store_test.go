package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/launchpad-assets/metadata/abc/metadata.json",
		PublicURL("launchpad-assets", "metadata/abc/metadata.json"),
	)

	assert.Equal(t,
		"https://storage.googleapis.com/launchpad-assets/metadata/a%20b/image.png",
		PublicURL("launchpad-assets", "metadata/a b/image.png"),
	)
}
