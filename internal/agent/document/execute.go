package document

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/askdata/internal/agent"
	"github.com/redbco/askdata/pkg/models"
)

// defaultFindLimit is applied when the generated query specifies no limit.
const defaultFindLimit = 100

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// parseQuery extracts the structured operation from the generated text. A
// direct JSON parse is tried first, then the outermost JSON object embedded
// in surrounding prose; anything else degrades to an unfiltered find.
func parseQuery(query string) map[string]interface{} {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(query), &obj); err == nil {
		return obj
	}

	if match := jsonObjectRe.FindString(query); match != "" {
		if err := json.Unmarshal([]byte(match), &obj); err == nil {
			return obj
		}
	}

	return map[string]interface{}{"operation": "find", "filter": map[string]interface{}{}}
}

// Execute runs the validated operation object against the target database
// and maps documents into the normalized result shape.
func (a *Agent) Execute(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	client, db, err := connect(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(ctx)

	queryObj := parseQuery(query)
	operation := strings.ToLower(stringField(queryObj, "operation"))
	if operation == "" {
		operation = "find"
	}

	collName := stringField(queryObj, "collection")
	if collName == "" {
		collName = ds.Details.Collection
	}
	if collName == "" {
		// Fall back to the first collection enumerable on the database.
		collections, err := db.ListCollectionNames(ctx, bson.D{})
		if err != nil || len(collections) == 0 {
			return nil, fmt.Errorf("no collection specified or found")
		}
		collName = collections[0]
	}
	collection := db.Collection(collName)

	var docs []map[string]interface{}
	switch operation {
	case "find":
		docs, err = executeFind(ctx, collection, queryObj)
	case "aggregate":
		docs, err = executeAggregate(ctx, collection, queryObj)
	case "count":
		count, countErr := collection.CountDocuments(ctx, filterField(queryObj))
		if countErr != nil {
			err = countErr
		} else {
			docs = []map[string]interface{}{{"count": count}}
		}
	case "distinct":
		docs, err = executeDistinct(ctx, collection, queryObj)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", operation)
	}
	if err != nil {
		return nil, fmt.Errorf("error executing %s: %v", operation, err)
	}

	if len(docs) > agent.MaxResultRows {
		docs = docs[:agent.MaxResultRows]
	}
	for i := range docs {
		convertBSONTypes(docs[i])
	}

	var columns []string
	if len(docs) > 0 {
		for key := range docs[0] {
			columns = append(columns, key)
		}
		sort.Strings(columns)
	}
	if docs == nil {
		docs = []map[string]interface{}{}
	}

	return &models.ExecutionResult{
		Rows:     docs,
		Columns:  columns,
		RowCount: len(docs),
	}, nil
}

func executeFind(ctx context.Context, collection *mongo.Collection, queryObj map[string]interface{}) ([]map[string]interface{}, error) {
	findOptions := options.Find()

	if projection, ok := queryObj["projection"].(map[string]interface{}); ok && len(projection) > 0 {
		findOptions.SetProjection(projection)
	}
	if sortSpec, ok := queryObj["sort"].(map[string]interface{}); ok && len(sortSpec) > 0 {
		sortDoc := bson.D{}
		for key, dir := range sortSpec {
			sortDoc = append(sortDoc, bson.E{Key: key, Value: intValue(dir, 1)})
		}
		findOptions.SetSort(sortDoc)
	}

	limit := intValue(queryObj["limit"], defaultFindLimit)
	if limit <= 0 || limit > agent.MaxResultRows {
		limit = defaultFindLimit
	}
	findOptions.SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filterField(queryObj), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []map[string]interface{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func executeAggregate(ctx context.Context, collection *mongo.Collection, queryObj map[string]interface{}) ([]map[string]interface{}, error) {
	pipeline, _ := queryObj["pipeline"].([]interface{})

	hasLimit := false
	for _, stage := range pipeline {
		if stageMap, ok := stage.(map[string]interface{}); ok {
			if _, found := stageMap["$limit"]; found {
				hasLimit = true
				break
			}
		}
	}
	if !hasLimit {
		pipeline = append(pipeline, map[string]interface{}{"$limit": defaultFindLimit})
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []map[string]interface{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func executeDistinct(ctx context.Context, collection *mongo.Collection, queryObj map[string]interface{}) ([]map[string]interface{}, error) {
	field := stringField(queryObj, "field")
	if field == "" {
		field = "_id"
	}

	var values []interface{}
	if err := collection.Distinct(ctx, field, filterField(queryObj)).Decode(&values); err != nil {
		return nil, err
	}

	return []map[string]interface{}{{
		"distinct_values": values,
		"count":           len(values),
	}}, nil
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

func filterField(obj map[string]interface{}) interface{} {
	if filter, ok := obj["filter"].(map[string]interface{}); ok {
		return filter
	}
	return bson.D{}
}

// intValue coerces JSON-decoded numbers (float64) and driver ints to int.
func intValue(v interface{}, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	default:
		return def
	}
}

// convertBSONTypes rewrites BSON-specific values into JSON-serializable
// scalars, recursively.
func convertBSONTypes(doc map[string]interface{}) {
	for k, v := range doc {
		switch val := v.(type) {
		case bson.ObjectID:
			doc[k] = val.Hex()
		case bson.DateTime:
			doc[k] = time.Unix(0, int64(val)*int64(time.Millisecond)).UTC().Format(time.RFC3339)
		case time.Time:
			doc[k] = val.Format(time.RFC3339)
		case bson.Binary:
			doc[k] = string(val.Data)
		case bson.Decimal128:
			doc[k] = val.String()
		case bson.D:
			nestedMap := make(map[string]interface{})
			for _, elem := range val {
				nestedMap[elem.Key] = elem.Value
			}
			convertBSONTypes(nestedMap)
			doc[k] = nestedMap
		case bson.A:
			arr := make([]interface{}, len(val))
			for i, item := range val {
				arr[i] = item
				if nestedDoc, ok := item.(map[string]interface{}); ok {
					convertBSONTypes(nestedDoc)
				}
			}
			doc[k] = arr
		case map[string]interface{}:
			convertBSONTypes(val)
		case []interface{}:
			for i, item := range val {
				if nestedDoc, ok := item.(map[string]interface{}); ok {
					convertBSONTypes(nestedDoc)
					val[i] = nestedDoc
				}
			}
		}
	}
}
