package schema

import (
	"github.com/go-openapi/inflect"

	"github.com/roach88/modelq/internal/ir"
)

// BelongsToKey is the default foreign key a source record holds for a
// belongsTo relation: "owner" -> "ownerId".
func BelongsToKey(relation string) string {
	return inflect.CamelizeDownFirst(relation + "_id")
}

// HasKey is the default foreign key target records hold for hasOne/hasMany
// relations declared on model: "Customer" -> "customerId".
func HasKey(model string) string {
	return inflect.CamelizeDownFirst(model + "_id")
}

// ReferencesKey is the default id-array property for referencesMany:
// "tags" -> "tagIds".
func ReferencesKey(relation string) string {
	return inflect.CamelizeDownFirst(inflect.Singularize(relation) + "_ids")
}

// DiscriminatorKey is the default polymorphic discriminator property:
// "imageable" -> "imageableType".
func DiscriminatorKey(relation string) string {
	return inflect.CamelizeDownFirst(relation + "_type")
}

// DefaultForeignKey returns the conventional foreign key of a relation
// declared on model.
func DefaultForeignKey(model string, rel ir.RelationDefinition) string {
	switch rel.Kind {
	case ir.BelongsTo:
		return BelongsToKey(rel.Name)
	case ir.HasOne, ir.HasMany:
		return HasKey(model)
	case ir.ReferencesMany:
		return ReferencesKey(rel.Name)
	}
	return ""
}
