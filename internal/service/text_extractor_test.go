package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubTika struct {
	text string
	err  error
}

func (s stubTika) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(r)
	return s.text, s.err
}

func newStubExtractor(tika TikaClient, local string, localErr error) *textExtractor {
	return &textExtractor{tika: tika, localPDF: func([]byte) (string, error) { return local, localErr }}
}

func TestTextExtractor(t *testing.T) {
	ctx := context.Background()
	data := []byte("%PDF-1.4")

	assert.Equal(t, "from tika", newStubExtractor(stubTika{text: "  from tika \n"}, "local", nil).Extract(ctx, data, "a.pdf"))
	assert.Equal(t, "local", newStubExtractor(stubTika{err: errors.New("down")}, "local", nil).Extract(ctx, data, "a.pdf"))
	assert.Equal(t, "local", newStubExtractor(stubTika{text: "   "}, "local", nil).Extract(ctx, data, "a.pdf"))
	assert.Equal(t, "local", newStubExtractor(nil, "local", nil).Extract(ctx, data, "a.pdf"))
	assert.Equal(t, "", newStubExtractor(nil, "", errors.New("bad pdf")).Extract(ctx, data, "a.pdf"))
	assert.Equal(t, "", newStubExtractor(stubTika{text: "x"}, "local", nil).Extract(ctx, nil, "a.pdf"))
}
