package main

import (
	"testing"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestFilterCollections(t *testing.T) {
	collections := []domain.Collection{
		{ID: "a", Name: "Recipes", Pages: []domain.Page{{Title: "Pasta", URL: "https://food.example/pasta"}}},
		{ID: "b", Name: "Work", Pages: []domain.Page{{Title: "Sprint board", URL: "https://tracker.example/recipes-team"}}},
		{ID: "c", Name: "Travel"},
	}

	got := filterCollections(collections, "RECIPES")
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	assert.Empty(t, filterCollections(collections, "nothing"))
}
