// Package mongo implements store.Store on MongoDB using mongo-driver v2.
// Suitable for deployments that already keep ledger configuration in Mongo.
//
// Ledger nodes live in one collection. A lease is an embedded document
// {owner_id, expires_at}; claiming is a single UpdateOne whose filter
// repeats the eligibility condition, so the server decides races.
//
// Either hand the store a database you manage:
//
//	client, _ := mongo.Connect(options.Client().ApplyURI(uri))
//	s := mongostore.New(client.Database("ledgerwork"))
//
// or let it own the connection:
//
//	s, err := mongostore.Open(ctx, uri, "ledgerwork")
//	defer s.Close()
//	s.Migrate(ctx)
package mongo
