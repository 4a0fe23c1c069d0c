package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBContainer wraps the testcontainers MongoDB container with a client.
// The relay tx manager needs sessions, so a replica set is started by default.
type MongoDBContainer struct {
	Container        *mongodb.MongoDBContainer
	Client           *mongo.Client
	ConnectionString string
	database         string
}

type MongoDBContainerOption func(*mongoDBContainerOptions)

type mongoDBContainerOptions struct {
	image      string
	replicaSet string
	database   string
}

func WithMongoImage(image string) MongoDBContainerOption {
	return func(o *mongoDBContainerOptions) {
		o.image = image
	}
}

// WithReplicaSet overrides the replica set name. An empty name starts a
// standalone server, which cannot run transactions.
func WithReplicaSet(name string) MongoDBContainerOption {
	return func(o *mongoDBContainerOptions) {
		o.replicaSet = name
	}
}

func WithMongoDatabase(name string) MongoDBContainerOption {
	return func(o *mongoDBContainerOptions) {
		o.database = name
	}
}

// StartMongoDBContainer starts a MongoDB container and returns a wrapper with a connected client
func StartMongoDBContainer(ctx context.Context, opts ...MongoDBContainerOption) (*MongoDBContainer, error) {
	o := &mongoDBContainerOptions{
		image:      "mongo:7",
		replicaSet: "rs0",
		database:   "relay",
	}
	for _, opt := range opts {
		opt(o)
	}

	var customizers []testcontainers.ContainerCustomizer
	if o.replicaSet != "" {
		customizers = append(customizers, mongodb.WithReplicaSet(o.replicaSet))
	}

	mongoContainer, err := mongodb.Run(ctx, o.image, customizers...)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	connectionString, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(mongoContainer)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	// testcontainers maps the port to a random host port, so the member
	// address advertised by the replica set is not reachable from the host.
	client, err := mongo.Connect(options.Client().ApplyURI(connectionString).SetDirect(true))
	if err != nil {
		_ = testcontainers.TerminateContainer(mongoContainer)
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		_ = testcontainers.TerminateContainer(mongoContainer)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBContainer{
		Container:        mongoContainer,
		Client:           client,
		ConnectionString: connectionString,
		database:         o.database,
	}, nil
}

// Database returns a handle for the named database, or the configured one
// when name is empty.
func (m *MongoDBContainer) Database(name string) *mongo.Database {
	if name == "" {
		name = m.database
	}
	return m.Client.Database(name)
}

// StartSession satisfies the session source of the mongo tx manager.
func (m *MongoDBContainer) StartSession() (*mongo.Session, error) {
	return m.Client.StartSession()
}

// Terminate disconnects the client and terminates the container
func (m *MongoDBContainer) Terminate(ctx context.Context) error {
	var errs []error
	if m.Client != nil {
		if err := m.Client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect from mongodb: %w", err))
		}
	}
	if m.Container != nil {
		if err := testcontainers.TerminateContainer(m.Container); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate mongodb container: %w", err))
		}
	}
	return errors.Join(errs...)
}
