package mongo

import (
	"context"

	"github.com/pollbox/api.pollbox.app/configure"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/sirupsen/logrus"
)

const (
	CollectionPolls    = "polls"
	CollectionVotes    = "votes"
	CollectionComments = "comments"
)

var Database *mongo.Database
var Ctx = context.TODO()

var ErrNoDocuments = mongo.ErrNoDocuments

func init() {
	clientOptions := options.Client().ApplyURI(configure.Config.GetString("mongo_uri"))
	client, err := mongo.Connect(Ctx, clientOptions)
	if err != nil {
		panic(err)
	}

	err = client.Ping(Ctx, nil)
	if err != nil {
		panic(err)
	}

	Database = client.Database(configure.Config.GetString("mongo_db"))

	// The public id is the only lookup key for polls; votes and
	// comments are always fetched per poll.
	_, err = Database.Collection(CollectionPolls).Indexes().CreateOne(Ctx, mongo.IndexModel{
		Keys:    bson.M{"id": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Errorf("mongodb, err=%v", err)
		return
	}

	_, err = Database.Collection(CollectionVotes).Indexes().CreateOne(Ctx, mongo.IndexModel{
		Keys: bson.M{"poll_id": 1},
	})
	if err != nil {
		log.Errorf("mongodb, err=%v", err)
		return
	}

	_, err = Database.Collection(CollectionComments).Indexes().CreateOne(Ctx, mongo.IndexModel{
		Keys: bson.M{"poll_id": 1},
	})
	if err != nil {
		log.Errorf("mongodb, err=%v", err)
	}
}
