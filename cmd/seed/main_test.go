package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMenuItemIDIsStable(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range sampleMenu {
		id := menuItemID(s.name)
		assert.Equal(t, id, menuItemID(s.name))
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.False(t, seen[id], "duplicate id for %s", s.name)
		seen[id] = true
	}
}
