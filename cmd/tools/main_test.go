package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"migrate", "classify", "turn", "prompts"}, names)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"language", "context"}, placeholders("answer in {language} using {context}"))
	assert.Empty(t, placeholders(`{"answer": "json braces"}`))
}
