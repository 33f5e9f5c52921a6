package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"shiftguard.io/infrastructure/logger"
)

// every call is bounded; a hung mongo node must not hold a verification
// flow open indefinitely
const queryTimeout = 15 * time.Second

func queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// CreateOne inserts the payload after letting the model stamp its own ID and
// timestamps through ParseModel.
func (repo *MongoRepository[T]) CreateOne(ctx context.Context, payload T) (*T, error) {
	c, cancel := queryContext(ctx)
	defer cancel()

	parsed := payload.ParseModel().(*T)
	if _, err := repo.Model.InsertOne(c, parsed); err != nil {
		logger.Error("mongo error while inserting a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return parsed, nil
}

// FindOneByFilter returns nil, nil when no document matches; callers treat
// absence as a domain state, not an error.
func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}, opts ...FindOptions) (*T, error) {
	c, cancel := queryContext(context.Background())
	defer cancel()

	findOpts := options.FindOne()
	if len(opts) != 0 {
		if opts[0].Projection != nil {
			findOpts.SetProjection(*opts[0].Projection)
		}
		if opts[0].Sort != nil {
			findOpts.SetSort(*opts[0].Sort)
		}
	}

	var result T
	err := repo.Model.FindOne(c, filter, findOpts).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logger.Error("mongo error while finding a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	c, cancel := queryContext(context.Background())
	defer cancel()

	count, err := repo.Model.CountDocuments(c, filter)
	if err != nil {
		logger.Error("mongo error while counting documents", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return count, nil
}

// UpdatePartialByID applies a $set of the given fields and refreshes
// updatedAt. Dotted keys address nested fields (metadata.lastUsed).
func (repo *MongoRepository[T]) UpdatePartialByID(id string, payload map[string]interface{}) (int64, error) {
	c, cancel := queryContext(context.Background())
	defer cancel()

	payload["updatedAt"] = time.Now()
	result, err := repo.Model.UpdateByID(c, id, bson.M{"$set": payload})
	if err != nil {
		logger.Error("mongo error while updating a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (repo *MongoRepository[T]) DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error) {
	c, cancel := queryContext(ctx)
	defer cancel()

	result, err := repo.Model.DeleteMany(c, filter)
	if err != nil {
		logger.Error("mongo error while deleting documents", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return result.DeletedCount, nil
}
