package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikePDF(t *testing.T) {
	assert.True(t, LooksLikePDF([]byte("%PDF-1.7\n%....")))
	assert.False(t, LooksLikePDF([]byte("PK\x03\x04 zip header")))
	assert.False(t, LooksLikePDF([]byte("plain text")))
	assert.False(t, LooksLikePDF(nil))
	assert.False(t, LooksLikePDF([]byte("%PD")))
}
