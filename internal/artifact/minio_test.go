package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "raw/doc_01ABC.pdf", RawKey("doc_01ABC"))
	assert.Equal(t, "simplified/doc_01ABC.pdf", SimplifiedKey("doc_01ABC"))
	assert.Equal(t, "avatars/usr_01ABC", AvatarKey("usr_01ABC"))
}
