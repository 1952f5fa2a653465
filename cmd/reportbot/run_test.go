package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/survey"
)

func TestCatalogFrom(t *testing.T) {
	def := survey.DefaultCatalog()

	c, err := catalogFrom(coreconfig.SurveyConfig{})
	require.NoError(t, err)
	assert.Equal(t, def.Prompts(), c.Prompts())

	c, err = catalogFrom(coreconfig.SurveyConfig{Locations: []string{"1-1"}})
	require.NoError(t, err)
	assert.Equal(t, def.Prompts(), c.Prompts())
	assert.True(t, c.ValidLocation("1-1"))
	assert.False(t, c.ValidLocation("9к3-27"))

	c, err = catalogFrom(coreconfig.SurveyConfig{Prompts: []string{"Вынесли мусор?"}})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, def.Locations(), c.Locations())

	_, err = catalogFrom(coreconfig.SurveyConfig{Prompts: []string{" "}})
	assert.ErrorContains(t, err, "survey config")
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["version"])
	assert.NotNil(t, runCmd.Flags().Lookup("config"))
}

func TestReplyDispatcherRetries(t *testing.T) {
	opts := replyDispatcherOptions()
	assert.Positive(t, opts.MaxRetries)
	assert.Positive(t, opts.RetryBackoff)
}
