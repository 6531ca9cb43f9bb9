package bank

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/smart-memory/internal/chunker"
)

func TestStoreDocumentSections(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	body := strings.TrimSpace(strings.Repeat("word ", 8))
	doc := "# Goals\n" + body + "\n\n# Constraints\n" + body

	mems, err := svc.StoreDocument(ctx, EntryParams{
		Content:  doc,
		Category: "product",
		Date:     "2024-06-01",
		Metadata: map[string]string{"project": "sm"},
	}, chunker.Options{TargetTokens: 10, MaxTokens: 15})
	require.NoError(t, err)
	require.Len(t, mems, 2)

	assert.Equal(t, "# Goals\n"+body, mems[0].Content)
	assert.Equal(t, map[string]string{"project": "sm", "date": "2024-06-01", "section": "1/2", "lines": "1-2"}, mems[0].Metadata)
	assert.Equal(t, "2/2", mems[1].Metadata["section"])
	assert.Equal(t, "4-5", mems[1].Metadata["lines"])
	for _, m := range mems {
		assert.Equal(t, "product", m.Category)
		assert.Equal(t, ContentTypeMarkdown, m.ContentType)
	}
}

func TestStoreDocumentSingleSection(t *testing.T) {
	svc := newTestService(t, nil)

	mems, err := svc.StoreDocument(context.Background(), EntryParams{Content: "# Short\nfits", Category: "context"}, chunker.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.NotContains(t, mems[0].Metadata, "section")
}

func TestStoreDocumentEmpty(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.StoreDocument(context.Background(), EntryParams{Content: "  "}, chunker.DefaultOptions())
	assert.Error(t, err)
}
