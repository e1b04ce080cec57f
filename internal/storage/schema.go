package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AttributeKind is the storage kind of an entity attribute.
type AttributeKind string

const (
	KindString     AttributeKind = "string"
	KindText       AttributeKind = "text"
	KindBool       AttributeKind = "bool"
	KindTime       AttributeKind = "time"
	KindStringList AttributeKind = "string_list"
)

type Attribute struct {
	Name     string
	Kind     AttributeKind
	Optional bool
	Indexed  bool
}

type Entity struct {
	Name       string
	Table      string
	Attributes []Attribute
}

// Attribute looks up an attribute by name.
func (e Entity) Attribute(name string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Schema is the declared shape of the store.
type Schema struct {
	Entities []Entity
}

func (s *Schema) Entity(name string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

var (
	errNoEntity        = errors.New("attribute declared before any entity")
	errEmptyEntity     = errors.New("entity has no attributes")
	errDuplicateEntity = errors.New("duplicate entity")
	errDuplicateAttr   = errors.New("duplicate attribute")
)

// AttributeOption tweaks a declared attribute.
type AttributeOption func(*Attribute)

func Optional() AttributeOption { return func(a *Attribute) { a.Optional = true } }
func Indexed() AttributeOption  { return func(a *Attribute) { a.Indexed = true } }

// SchemaBuilder declares entities and attributes in code. The first error
// sticks and is returned from Build.
type SchemaBuilder struct {
	entities []Entity
	err      error
}

func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{}
}

// Entity starts a new entity; following Attribute calls belong to it.
func (b *SchemaBuilder) Entity(name, table string) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	for _, e := range b.entities {
		if e.Name == name {
			b.err = fmt.Errorf("%w: %s", errDuplicateEntity, name)
			return b
		}
	}
	b.entities = append(b.entities, Entity{Name: name, Table: table})
	return b
}

func (b *SchemaBuilder) Attribute(name string, kind AttributeKind, opts ...AttributeOption) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	if len(b.entities) == 0 {
		b.err = fmt.Errorf("%w: %s", errNoEntity, name)
		return b
	}
	e := &b.entities[len(b.entities)-1]
	if _, ok := e.Attribute(name); ok {
		b.err = fmt.Errorf("%w: %s.%s", errDuplicateAttr, e.Name, name)
		return b
	}
	attr := Attribute{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&attr)
	}
	e.Attributes = append(e.Attributes, attr)
	return b
}

func (b *SchemaBuilder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, e := range b.entities {
		if len(e.Attributes) == 0 {
			return nil, fmt.Errorf("%w: %s", errEmptyEntity, e.Name)
		}
	}
	entities := make([]Entity, len(b.entities))
	copy(entities, b.entities)
	return &Schema{Entities: entities}, nil
}

// ItemSchema declares the clipboard item entity.
func ItemSchema() *Schema {
	s, err := NewSchemaBuilder().
		Entity("ClipboardItem", ItemModel{}.TableName()).
		Attribute("id", KindString).
		Attribute("content", KindText).
		Attribute("type", KindString, Indexed()).
		Attribute("filename", KindString, Optional()).
		Attribute("timestamp", KindTime, Indexed()).
		Attribute("pinned", KindBool, Indexed()).
		Attribute("trashed", KindBool, Indexed()).
		Attribute("display_name", KindString, Optional()).
		Attribute("tags", KindStringList, Optional()).
		Build()
	if err != nil {
		panic(err)
	}
	return s
}

// VerifySchema checks that every declared attribute exists as a column.
func VerifySchema(db *gorm.DB, s *Schema) error {
	m := db.Migrator()
	for _, e := range s.Entities {
		if !m.HasTable(e.Table) {
			return fmt.Errorf("schema: table %s for entity %s is missing", e.Table, e.Name)
		}
		for _, a := range e.Attributes {
			if !m.HasColumn(e.Table, a.Name) {
				return fmt.Errorf("schema: column %s.%s is missing", e.Table, a.Name)
			}
			if a.Indexed && !m.HasIndex(e.Table, "idx_"+e.Table+"_"+a.Name) {
				return fmt.Errorf("schema: index on %s.%s is missing", e.Table, a.Name)
			}
		}
	}
	return nil
}
