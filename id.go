package ledgerwork

import "github.com/xraph/ledgerwork/id"

// ID is the primary identifier type for all ledgerwork entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
