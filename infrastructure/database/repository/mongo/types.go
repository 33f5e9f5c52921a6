package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"
	"shiftguard.io/infrastructure/database"
)

// MongoRepository wraps one collection of a single model type. Models stamp
// their own IDs and timestamps in ParseModel before insertion.
type MongoRepository[T database.BaseModel] struct {
	Model *mongo.Collection
}

type FindOptions struct {
	Projection *interface{}
	Sort       *interface{}
}
