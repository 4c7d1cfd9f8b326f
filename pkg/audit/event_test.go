package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
)

type account struct {
	Name        string    `bson:"name"`
	Plan        string    `bson:"plan"`
	Seats       int       `bson:"seats"`
	LastUpdated time.Time `bson:"last_updated"`
}

func TestDiff(t *testing.T) {
	t.Parallel()

	t.Run("captures changed fields only", func(t *testing.T) {
		t.Parallel()

		before := account{Name: "acme", Plan: "free", Seats: 3, LastUpdated: time.Now()}
		after := account{Name: "acme", Plan: "pro", Seats: 5, LastUpdated: time.Now().Add(time.Hour)}

		changes := audit.Diff(before, after)
		require.Len(t, changes, 2)
		assert.Equal(t, "free", changes["plan"].From)
		assert.Equal(t, "pro", changes["plan"].To)
		assert.EqualValues(t, 3, changes["seats"].From)
		assert.EqualValues(t, 5, changes["seats"].To)
		assert.NotContains(t, changes, "name")
	})

	t.Run("excludes bookkeeping fields", func(t *testing.T) {
		t.Parallel()

		before := account{Plan: "pro", LastUpdated: time.Unix(100, 0)}
		after := account{Plan: "pro", LastUpdated: time.Unix(200, 0)}

		assert.Nil(t, audit.Diff(before, after))
	})

	t.Run("nil before treats every field as new", func(t *testing.T) {
		t.Parallel()

		changes := audit.Diff(nil, account{Name: "acme", Plan: "free"})
		require.NotEmpty(t, changes)
		assert.Nil(t, changes["name"].From)
		assert.Equal(t, "acme", changes["name"].To)
	})

	t.Run("records removed fields", func(t *testing.T) {
		t.Parallel()

		changes := audit.Diff(bson.M{"a": "x", "b": "y"}, bson.M{"a": "x"})
		require.Len(t, changes, 1)
		assert.Equal(t, "y", changes["b"].From)
		assert.Nil(t, changes["b"].To)
	})

	t.Run("identical states yield nil", func(t *testing.T) {
		t.Parallel()

		doc := account{Name: "acme", Plan: "pro", Seats: 10}
		assert.Nil(t, audit.Diff(doc, doc))
	})
}

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	e := &audit.Event{}
	assert.ErrorIs(t, e.Validate(), audit.ErrEventValidation)

	e.Type = audit.EventCreate
	assert.NoError(t, e.Validate())
}
