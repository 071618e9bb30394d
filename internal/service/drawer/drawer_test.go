package drawer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestController(t *testing.T) {
	c := New()
	assert.False(t, c.IsOpen())

	var seen []bool
	unsubscribe := c.Subscribe(func(open bool) { seen = append(seen, open) })

	c.Open()
	c.Open()
	assert.True(t, c.IsOpen())
	c.Close()
	assert.False(t, c.IsOpen())

	unsubscribe()
	c.Open()

	assert.Equal(t, []bool{true, false}, seen)
}
