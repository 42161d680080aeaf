package ir

// DataType names a property's declared type.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeInteger DataType = "integer"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
	TypeArray   DataType = "array"
	TypeObject  DataType = "object"
	TypeAny     DataType = "any"
)

// ValidDataTypes lists the accepted property types.
var ValidDataTypes = map[DataType]bool{
	TypeString:  true,
	TypeNumber:  true,
	TypeInteger: true,
	TypeBoolean: true,
	TypeDate:    true,
	TypeArray:   true,
	TypeObject:  true,
	TypeAny:     true,
}

// Kind returns the comparison kind values of this type have.
// TypeArray, TypeObject and TypeAny report KindNull (no ordering constraint).
func (t DataType) Kind() Kind {
	switch t {
	case TypeString:
		return KindString
	case TypeNumber, TypeInteger:
		return KindNumber
	case TypeBoolean:
		return KindBool
	case TypeDate:
		return KindTime
	default:
		return KindNull
	}
}

// UniqueMode declares a property's uniqueness constraint.
type UniqueMode string

const (
	UniqueNone UniqueMode = ""
	UniqueOn   UniqueMode = "unique"
)

// Default value generators accepted in PropertyDefinition.DefaultFn.
const (
	DefaultFnUUID   = "uuid"
	DefaultFnUUIDv7 = "uuidv7"
	DefaultFnULID   = "ulid"
	DefaultFnNow    = "now"
)

// ValidDefaultFns lists the accepted default generators.
var ValidDefaultFns = map[string]bool{
	DefaultFnUUID:   true,
	DefaultFnUUIDv7: true,
	DefaultFnULID:   true,
	DefaultFnNow:    true,
}

// PropertyDefinition describes one property of a model.
type PropertyDefinition struct {
	Name         string     `json:"name"`
	Type         DataType   `json:"type"`
	ItemType     DataType   `json:"item_type,omitempty"` // element type for arrays
	ID           bool       `json:"id,omitempty"`
	Column       string     `json:"column,omitempty"`
	Default      Value      `json:"default,omitempty"`
	DefaultFn    string     `json:"default_fn,omitempty"`
	Required     bool       `json:"required,omitempty"`
	Unique       UniqueMode `json:"unique,omitempty"`
	Validators   []string   `json:"validators,omitempty"`
	Transformers []string   `json:"transformers,omitempty"`
}

// RelationKind is one of the four association kinds.
type RelationKind string

const (
	BelongsTo      RelationKind = "belongsTo"
	HasOne         RelationKind = "hasOne"
	HasMany        RelationKind = "hasMany"
	ReferencesMany RelationKind = "referencesMany"
)

// ValidRelationKinds lists the accepted relation kinds.
var ValidRelationKinds = map[RelationKind]bool{
	BelongsTo:      true,
	HasOne:         true,
	HasMany:        true,
	ReferencesMany: true,
}

// Polymorphic marks a relation whose target model is chosen per record.
//
// For belongsTo the discriminator lives on the source record and names the
// target model. For hasOne/hasMany it lives on the target record and names
// the source model.
type Polymorphic struct {
	Discriminator string   `json:"discriminator"`
	Targets       []string `json:"targets,omitempty"`
}

// RelationDefinition describes an association from its owning model.
type RelationDefinition struct {
	Name        string       `json:"name"`
	Kind        RelationKind `json:"kind"`
	Target      string       `json:"target,omitempty"`
	ForeignKey  string       `json:"foreign_key,omitempty"`
	KeyFrom     string       `json:"key_from,omitempty"`
	KeyTo       string       `json:"key_to,omitempty"`
	Polymorphic *Polymorphic `json:"polymorphic,omitempty"`
	Scope       Object       `json:"scope,omitempty"` // raw filter, parsed by queryir
}

// ModelDefinition describes a model as declared, before inheritance is applied.
type ModelDefinition struct {
	Name       string                        `json:"name"`
	Base       string                        `json:"base,omitempty"`
	Datasource string                        `json:"datasource,omitempty"`
	Table      string                        `json:"table,omitempty"`
	Properties map[string]PropertyDefinition `json:"properties"`
	Relations  map[string]RelationDefinition `json:"relations,omitempty"`
}

// Connector names accepted in DatasourceDefinition.Connector.
const (
	ConnectorMemory = "memory"
	ConnectorSQLite = "sqlite"
)

// DatasourceDefinition names a backing store.
type DatasourceDefinition struct {
	Name      string `json:"name"`
	Connector string `json:"connector"`
	Settings  Object `json:"settings,omitempty"`
}
