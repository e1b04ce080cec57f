package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestItemSchemaDeclaresAttributes(t *testing.T) {
	s := ItemSchema()
	e, ok := s.Entity("ClipboardItem")
	require.True(t, ok)
	assert.Equal(t, "clipboard_items", e.Table)

	for _, name := range []string{"id", "content", "type", "filename", "timestamp", "pinned", "trashed", "display_name", "tags"} {
		_, ok := e.Attribute(name)
		assert.True(t, ok, "missing attribute %s", name)
	}

	tags, _ := e.Attribute("tags")
	assert.Equal(t, KindStringList, tags.Kind)
	assert.True(t, tags.Optional)
}

func TestSchemaBuilderErrors(t *testing.T) {
	_, err := NewSchemaBuilder().Attribute("id", KindString).Build()
	assert.ErrorIs(t, err, errNoEntity)

	_, err = NewSchemaBuilder().Entity("A", "a").Build()
	assert.ErrorIs(t, err, errEmptyEntity)

	_, err = NewSchemaBuilder().Entity("A", "a").Attribute("id", KindString).Attribute("id", KindText).Build()
	assert.ErrorIs(t, err, errDuplicateAttr)

	_, err = NewSchemaBuilder().
		Entity("A", "a").Attribute("id", KindString).
		Entity("A", "b").Attribute("id", KindString).
		Build()
	assert.ErrorIs(t, err, errDuplicateEntity)
}

func TestVerifySchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "schema.db")), &gorm.Config{})
	require.NoError(t, err)

	assert.Error(t, VerifySchema(db, ItemSchema()), "table not migrated yet")

	require.NoError(t, db.AutoMigrate(&ItemModel{}))
	assert.NoError(t, VerifySchema(db, ItemSchema()))

	extra, err := NewSchemaBuilder().
		Entity("ClipboardItem", "clipboard_items").
		Attribute("color", KindString).
		Build()
	require.NoError(t, err)
	assert.Error(t, VerifySchema(db, extra))
}
