package domain

// EntityType is a coarse tag assigned by the entity extractor.
type EntityType string

const (
	// EntityPerson marks short capitalised phrases assumed to be people.
	EntityPerson EntityType = "PERSON"
	// EntityOrg marks organisations, detected by corporate suffixes.
	EntityOrg EntityType = "ORG"
	// EntityLocation marks places, detected by street/city keywords.
	EntityLocation EntityType = "LOC"
	// EntityProduct marks product mentions from a fixed keyword list.
	EntityProduct EntityType = "PRODUCT"
	// EntityDate marks date expressions.
	EntityDate EntityType = "DATE"
	// EntityMisc is the fallback type.
	EntityMisc EntityType = "MISC"
)

// Entity is a deduplicated (tenant, value) pair shared across chunks and
// documents within a tenant. Entities are not owned by any single chunk.
type Entity struct {
	// ID is the unique identifier for the entity.
	ID string

	// TenantID is the owning tenant.
	TenantID string

	// Type is the coarse entity type.
	Type EntityType

	// Value is the surface form, unique per tenant.
	Value string
}

// EntityMention is one extracted occurrence of an entity in a chunk,
// before persistence and deduplication against the store.
type EntityMention struct {
	// Type is the coarse entity type.
	Type EntityType

	// Value is the surface form.
	Value string

	// Frequency is how often the value occurred in the chunk.
	Frequency int
}

// EntityLink is a directed, weighted co-occurrence edge between two
// entities within a tenant. Links are stored in both directions; weights
// only ever increase outside of deletion cascades.
type EntityLink struct {
	// TenantID is the owning tenant.
	TenantID string

	// SourceID is the origin entity.
	SourceID string

	// TargetID is the destination entity.
	TargetID string

	// Weight is the accumulated co-occurrence count.
	Weight int64
}

// ChunkEntity records that an entity appeared in a chunk with a given
// frequency. It supports graph-based relevance boosting at query time.
type ChunkEntity struct {
	// TenantID is the owning tenant.
	TenantID string

	// ChunkID is the chunk the entity appeared in.
	ChunkID string

	// EntityID is the entity that appeared.
	EntityID string

	// Frequency is the occurrence count within the chunk.
	Frequency int
}

// EntityRank is one row of a top-entities-by-weight aggregation.
type EntityRank struct {
	// Entity is the ranked entity.
	Entity Entity

	// TotalWeight is the sum of its outgoing link weights.
	TotalWeight int64
}
