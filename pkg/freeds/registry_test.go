package freeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistrySharesClients(t *testing.T) {

	assert := assert.New(t)

	registry := NewRegistry()
	device := Device{Host: "192.168.1.50"}

	a, releaseA := registry.Acquire(device)
	b, releaseB := registry.Acquire(Device{Host: "192.168.1.50", Port: 80})
	c, releaseC := registry.Acquire(Device{Host: "192.168.1.51"})

	assert.Same(a, b)
	assert.NotSame(a, c)
	assert.Equal(2, registry.Len())

	releaseA()
	releaseA()
	assert.Equal(2, registry.Len())

	releaseB()
	assert.Equal(1, registry.Len())

	releaseC()
	assert.Equal(0, registry.Len())

	// a fresh acquire after the last release builds a new client
	d, releaseD := registry.Acquire(device)
	defer releaseD()
	assert.NotSame(a, d)
}
