// Package relation attaches related records to query results.
//
// Include resolves every requested relation with one batched fetch per
// relation (one per target model for polymorphic belongsTo), never one fetch
// per record:
//
//	kind            key holder                 fetch predicate
//	belongsTo       source holds FK            target key in {source FKs}
//	hasOne          target holds FK            target FK in {source keys}
//	hasMany         target holds FK            target FK in {source keys}
//	referencesMany  source holds id array      target key in union of arrays
//
// Fetches for different relations run concurrently. Attachments are staged
// and applied only after every fetch succeeded, so a failed Include leaves
// the source records exactly as they were.
package relation
