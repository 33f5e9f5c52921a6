package connection

import (
	"shiftguard.io/infrastructure/database/connection/cache"
	"shiftguard.io/infrastructure/database/connection/datastore"
)

func ConnectToDatabase() {
	datastore.ConnectToDatabase()
	cache.ConnectToCache()
}
