package docstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bed struct {
	BedID      string `json:"bedId"`
	HospitalID string `json:"hospitalId"`
	Status     string `json:"status"`
	Floor      int    `json:"floor"`
}

func TestMemory_InsertGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Insert(ctx, "beds", "B1", json.RawMessage(`{"bedId":"B1"}`)))
	assert.ErrorIs(t, m.Insert(ctx, "beds", "B1", json.RawMessage(`{"bedId":"B1"}`)), ErrDuplicateKey)

	doc, err := m.Get(ctx, "beds", "B1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"bedId":"B1"}`, string(doc))

	require.NoError(t, m.Delete(ctx, "beds", "B1"))
	_, err = m.Get(ctx, "beds", "B1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "beds", "B1"), ErrNotFound)
}

func TestMemory_PutUpserts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "beds", "B1", json.RawMessage(`{"status":"Vacant"}`)))
	require.NoError(t, m.Put(ctx, "beds", "B1", json.RawMessage(`{"status":"Occupied"}`)))

	doc, err := m.Get(ctx, "beds", "B1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Occupied"}`, string(doc))
}

func TestMemory_RejectsInvalidJSON(t *testing.T) {
	m := NewMemory()
	assert.Error(t, m.Put(context.Background(), "beds", "B1", json.RawMessage(`{`)))
}

func TestMemory_ReturnedDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "beds", "B1", json.RawMessage(`{"a":1}`)))

	doc, err := m.Get(ctx, "beds", "B1")
	require.NoError(t, err)
	doc[1] = 'X'

	again, err := m.Get(ctx, "beds", "B1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again))
}

func TestCollection_FindByFields(t *testing.T) {
	ctx := context.Background()
	beds := NewCollection[bed](NewMemory(), "beds")

	for _, b := range []bed{
		{BedID: "B2", HospitalID: "H1", Status: "Vacant", Floor: 2},
		{BedID: "B1", HospitalID: "H1", Status: "Occupied", Floor: 1},
		{BedID: "B3", HospitalID: "H2", Status: "Vacant", Floor: 1},
	} {
		b := b
		require.NoError(t, beds.Insert(ctx, b.BedID, &b))
	}

	h1, err := beds.Find(ctx, Filter{"hospitalId": "H1"})
	require.NoError(t, err)
	require.Len(t, h1, 2)
	assert.Equal(t, "B1", h1[0].BedID, "results are ordered by key")
	assert.Equal(t, "B2", h1[1].BedID)

	vacantFloor1, err := beds.Find(ctx, Filter{"status": "Vacant", "floor": 1})
	require.NoError(t, err)
	require.Len(t, vacantFloor1, 1)
	assert.Equal(t, "B3", vacantFloor1[0].BedID)

	all, err := beds.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := beds.Find(ctx, Filter{"hospitalId": "H9"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCollection_Truncate(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	beds := NewCollection[bed](store, "beds")
	other := NewCollection[bed](store, "other")

	require.NoError(t, beds.Put(ctx, "B1", &bed{BedID: "B1"}))
	require.NoError(t, other.Put(ctx, "X", &bed{BedID: "X"}))
	require.NoError(t, beds.Truncate(ctx))

	all, err := beds.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	kept, err := other.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "X", kept.BedID)
	assert.Equal(t, "other", other.Name())
}

func TestMongoConversionRoundTrip(t *testing.T) {
	d, err := toBSON("B1", json.RawMessage(`{"bedId":"B1","floor":2,"location":{"lat":28.6,"lng":77.2},"tags":["icu"]}`))
	require.NoError(t, err)
	assert.Equal(t, "B1", d["_id"])

	raw, err := fromBSON(d)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.NotContains(t, got, "_id")
	assert.Equal(t, "B1", got["bedId"])
	assert.Equal(t, float64(2), got["floor"])
	assert.Equal(t, map[string]interface{}{"lat": 28.6, "lng": 77.2}, got["location"])
	assert.Equal(t, []interface{}{"icu"}, got["tags"])
}

func TestBackendNames(t *testing.T) {
	assert.Equal(t, "memory", NewMemory().Name())
	assert.Equal(t, "postgres", NewPostgres(nil).Name())
	assert.Equal(t, "mongo", NewMongo(nil).Name())
}
