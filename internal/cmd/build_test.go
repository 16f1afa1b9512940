package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRequestPositionalArgsWinOverBinsFlag(t *testing.T) {
	buildBins = "from-flag"
	defer func() { buildBins = "" }()

	req := buildRequestFromFlags([]string{"server", "worker"})
	assert.Equal(t, "server,worker", req.BinariesCSV)

	req = buildRequestFromFlags(nil)
	assert.Equal(t, "from-flag", req.BinariesCSV)
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "all binaries", joinNames(nil))
	assert.Equal(t, "server, worker", joinNames([]string{"server", "worker"}))
}
