package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestParseQuery(t *testing.T) {
	t.Run("direct json parses", func(t *testing.T) {
		obj := parseQuery(`{"operation": "find", "filter": {"age": 30}, "limit": 5}`)
		assert.Equal(t, "find", obj["operation"])
		assert.Equal(t, float64(5), obj["limit"])
	})

	t.Run("json embedded in prose is extracted", func(t *testing.T) {
		obj := parseQuery(`Here is the query: {"operation": "count", "filter": {}} as requested`)
		assert.Equal(t, "count", obj["operation"])
	})

	t.Run("unparseable text degrades to unfiltered find", func(t *testing.T) {
		obj := parseQuery(`no structure here at all`)
		assert.Equal(t, "find", obj["operation"])
		assert.Equal(t, map[string]interface{}{}, obj["filter"])
	})
}

func TestConvertBSONTypes(t *testing.T) {
	t.Run("object id becomes hex string", func(t *testing.T) {
		id := bson.NewObjectID()
		doc := map[string]interface{}{"_id": id}
		convertBSONTypes(doc)
		assert.Equal(t, id.Hex(), doc["_id"])
	})

	t.Run("datetime becomes rfc3339 text", func(t *testing.T) {
		ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		doc := map[string]interface{}{"created": bson.NewDateTimeFromTime(ts)}
		convertBSONTypes(doc)
		assert.Equal(t, "2024-06-01T12:00:00Z", doc["created"])
	})

	t.Run("nested documents and arrays are converted", func(t *testing.T) {
		id := bson.NewObjectID()
		doc := map[string]interface{}{
			"meta": bson.D{{Key: "ref", Value: id}},
			"tags": bson.A{"a", "b"},
		}
		convertBSONTypes(doc)

		meta, ok := doc["meta"].(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, id.Hex(), meta["ref"])
		assert.Equal(t, []interface{}{"a", "b"}, doc["tags"])
	})

	t.Run("plain scalars are untouched", func(t *testing.T) {
		doc := map[string]interface{}{"name": "ada", "age": int32(36)}
		convertBSONTypes(doc)
		assert.Equal(t, "ada", doc["name"])
		assert.Equal(t, int32(36), doc["age"])
	})
}

func TestIntValue(t *testing.T) {
	assert.Equal(t, 5, intValue(float64(5), 100))
	assert.Equal(t, 7, intValue(int64(7), 100))
	assert.Equal(t, 100, intValue(nil, 100))
	assert.Equal(t, 100, intValue("not a number", 100))
}
