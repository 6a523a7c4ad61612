package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := rootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "orderflow version 0.0.0\n", out.String())
}

func TestServeRejectsMissingConfig(t *testing.T) {
	root := rootCommand()
	root.SetArgs([]string{"serve", "--config", "/nonexistent/orderflow.yaml"})
	assert.Error(t, root.Execute())
}
