package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/zerr"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	base := zerr.New("lock node not found")
	err := zerr.With(zerr.Wrap(base, "failed to chase input nixpkgs"), "input", "nixpkgs")
	Error(context.Background(), log, err)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "failed to chase input nixpkgs: lock node not found")
	assert.Contains(t, out, "input=nixpkgs")

	buf.Reset()
	Error(context.Background(), log, nil)
	assert.Empty(t, buf.String())
}
