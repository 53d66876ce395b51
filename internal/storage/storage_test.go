package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	a := ObjectKey("assinaturas", "Assinatura.PNG")
	b := ObjectKey("assinaturas", "Assinatura.PNG")

	assert.True(t, strings.HasPrefix(a, "assinaturas/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}
