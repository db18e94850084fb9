// Package document implements the query agent for MongoDB datasources
// using the v2 driver. Generated queries arrive as JSON operation objects
// restricted to find, aggregate, count and distinct.
package document

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/logger"
	"github.com/redbco/askdata/pkg/models"
)

const (
	// schemaCollectionLimit caps how many collections feed the prompt context.
	schemaCollectionLimit = 10

	// schemaSampleSize is how many documents are sampled to infer fields.
	schemaSampleSize = 3
)

// Agent is the document query agent. Stateless; a client is connected at
// the start of each call and disconnected on every exit path.
type Agent struct {
	logger        *logger.Logger
	queryTimeout  time.Duration
	schemaTimeout time.Duration
}

// New creates a document agent.
func New(log *logger.Logger) *Agent {
	return &Agent{
		logger:        log,
		queryTimeout:  30 * time.Second,
		schemaTimeout: 10 * time.Second,
	}
}

// Paradigm implements agent.QueryAgent.
func (a *Agent) Paradigm() dbcapabilities.DataParadigm {
	return dbcapabilities.ParadigmDocument
}

// connect establishes a short-timeout client connection.
func connect(ctx context.Context, ds *models.Datasource) (*mongo.Client, *mongo.Database, error) {
	details := ds.Details

	uri := details.URI
	if uri == "" {
		host := details.Host
		if host == "" {
			host = "localhost"
		}
		port := details.Port
		if port == 0 {
			port = dbcapabilities.All[dbcapabilities.MongoDB].DefaultPort
		}
		uri = fmt.Sprintf("mongodb://%s:%d", host, port)
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to database: %v", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("error pinging database: %v", err)
	}

	return client, client.Database(details.Database), nil
}

// SchemaContext samples documents from the first collections of the
// database and renders the inferred fields and types. An unreachable
// backend degrades to a placeholder string.
func (a *Agent) SchemaContext(ctx context.Context, ds *models.Datasource) string {
	ctx, cancel := context.WithTimeout(ctx, a.schemaTimeout)
	defer cancel()

	client, db, err := connect(ctx, ds)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("error extracting MongoDB schema: %v", err)
		}
		return "Error extracting schema"
	}
	defer client.Disconnect(ctx)

	collections, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		if a.logger != nil {
			a.logger.Error("error extracting MongoDB schema: %v", err)
		}
		return "Error extracting schema"
	}
	if len(collections) > schemaCollectionLimit {
		collections = collections[:schemaCollectionLimit]
	}

	var parts []string
	for _, name := range collections {
		collection := db.Collection(name)

		findOptions := options.Find().SetLimit(schemaSampleSize)
		cursor, err := collection.Find(ctx, bson.D{}, findOptions)
		if err != nil {
			continue
		}
		var samples []map[string]interface{}
		if err := cursor.All(ctx, &samples); err != nil || len(samples) == 0 {
			continue
		}

		// Union of field names and BSON types across the sample.
		fields := make(map[string]string)
		for _, doc := range samples {
			for key, value := range doc {
				if _, seen := fields[key]; !seen {
					fields[key] = bsonTypeName(value)
				}
			}
		}
		fieldNames := make([]string, 0, len(fields))
		for key := range fields {
			fieldNames = append(fieldNames, key)
		}
		sort.Strings(fieldNames)

		docCount, _ := collection.EstimatedDocumentCount(ctx)

		var b strings.Builder
		fmt.Fprintf(&b, "Collection: %s\nEstimated documents: %d\nFields:\n", name, docCount)
		for _, key := range fieldNames {
			fmt.Fprintf(&b, "  - %s: %s\n", key, fields[key])
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}

	if len(parts) == 0 {
		return "No collections found"
	}
	return strings.Join(parts, "\n\n")
}

// SchemaInfo lists collections with their fields and document counts.
func (a *Agent) SchemaInfo(ctx context.Context, ds *models.Datasource) (*models.SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.schemaTimeout)
	defer cancel()

	client, db, err := connect(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("error getting collections info: %v", err)
	}
	defer client.Disconnect(ctx)

	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("error listing collections: %v", err)
	}

	info := &models.SchemaInfo{Kind: string(dbcapabilities.ParadigmDocument)}
	for _, name := range names {
		collection := db.Collection(name)

		var sample map[string]interface{}
		var fields []string
		if err := collection.FindOne(ctx, bson.D{}).Decode(&sample); err == nil {
			for key := range sample {
				fields = append(fields, key)
			}
			sort.Strings(fields)
		}

		docCount, _ := collection.EstimatedDocumentCount(ctx)

		info.Collections = append(info.Collections, models.CollectionInfo{
			Name:          name,
			Fields:        fields,
			DocumentCount: docCount,
		})
	}

	return info, nil
}

// bsonTypeName names a decoded BSON value's type for the schema summary.
func bsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bson.ObjectID:
		return "objectId"
	case bson.DateTime, time.Time:
		return "date"
	case string:
		return "string"
	case bool:
		return "bool"
	case int32, int64, int:
		return "int"
	case float64, float32:
		return "double"
	case bson.A, []interface{}:
		return "array"
	case bson.D, bson.M, map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
