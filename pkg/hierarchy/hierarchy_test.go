package hierarchy

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
)

func ptr(s string) *string { return &s }

func node(country string, levels ...string) models.LocationNode {
	n := models.LocationNode{Country: country}
	fields := []**string{&n.Project, &n.Unit, &n.UnitNumber}
	for i, l := range levels {
		*fields[i] = ptr(l)
	}
	return n
}

func TestBuild(t *testing.T) {
	tree := Build([]models.LocationNode{
		node("Oman"),
		node("Oman", "Block 6"),
		node("Oman", "Block 6", "Rig 12"),
		node("Oman", "Block 6", "Rig 12", "U-1"),
		node("Oman", "Block 6", "Rig 12", "U-2"),
		node("Oman", "Block 6", "Rig 14"),
		node("Kuwait"),
		node("UAE", "Bab", "Rig 3", "U-9"),
	})

	assert.Equal(t, Tree{
		"Oman": {
			"Block 6": {
				"Rig 12": {"U-1", "U-2"},
				"Rig 14": {},
			},
		},
		"Kuwait": {},
		"UAE":    {"Bab": {"Rig 3": {"U-9"}}},
	}, tree)
	assert.NotNil(t, tree["Oman"]["Block 6"]["Rig 14"], "unit without numbers must render as an empty list")
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func newService() (*Service, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return NewService(s, zerolog.Nop()), s
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		node    models.LocationNode
		wantErr error
	}{
		{"country only", node("Oman"), nil},
		{"blank country", node("  "), ErrCountryRequired},
		{"unit without project", models.LocationNode{Country: "Oman", Unit: ptr("Rig 1")}, ErrInvalidNode},
		{"blank project is absent", models.LocationNode{Country: "Qatar", Project: ptr(" ")}, nil},
		{"bad geofence", models.LocationNode{Country: "Bahrain", Geofence: []byte(`{"coordinates":[]}`)}, ErrInvalidNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService()
			n := tt.node
			got, err := svc.Create(ctx, &n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.True(t, got.IsActive)
		})
	}

	t.Run("duplicate country is rejected", func(t *testing.T) {
		svc, _ := newService()
		_, err := svc.Create(ctx, &models.LocationNode{Country: "Oman"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, &models.LocationNode{Country: "Oman", Project: ptr("")})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		_, raw, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, raw, 1)
	})
}

func TestService_DeleteDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	country, err := svc.Create(ctx, &models.LocationNode{Country: "Oman"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.LocationNode{Country: "Oman", Project: ptr("Block 6")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, country.ID))
	assert.ErrorIs(t, svc.Delete(ctx, country.ID), store.ErrNotFound)

	tree, raw, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Contains(t, tree["Oman"], "Block 6")
}

const blockSix = `{"type":"Polygon","coordinates":[[[56,22],[58,22],[58,24],[56,24],[56,22]]]}`

func TestService_Locate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	country, err := svc.Create(ctx, &models.LocationNode{Country: "Oman",
		Geofence: []byte(`{"type":"Polygon","coordinates":[[[52,16],[60,16],[60,27],[52,27],[52,16]]]}`)})
	require.NoError(t, err)
	project, err := svc.Create(ctx, &models.LocationNode{Country: "Oman", Project: ptr("Block 6"), Geofence: []byte(blockSix)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.LocationNode{Country: "Oman", Project: ptr("Block 7")})
	require.NoError(t, err)

	got, err := svc.Locate(ctx, 23, 57)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID, "deepest containing node wins")

	got, err = svc.Locate(ctx, 18, 55)
	require.NoError(t, err)
	assert.Equal(t, country.ID, got.ID)

	_, err = svc.Locate(ctx, 40, 10)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Locate(ctx, 91, 10)
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestService_SetGeofence(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	n, err := svc.Create(ctx, &models.LocationNode{Country: "Oman"})
	require.NoError(t, err)

	got, err := svc.SetGeofence(ctx, n.ID, []byte(`{"coordinates":[{"lat":22,"lng":56},{"lat":22,"lng":57},{"lat":23,"lng":57}]}`))
	require.NoError(t, err)
	assert.Contains(t, string(got.Geofence), `"Polygon"`)

	_, err = svc.SetGeofence(ctx, n.ID, []byte(`{"type":"Point","coordinates":[1,2]}`))
	assert.ErrorIs(t, err, ErrInvalidNode)

	got, err = svc.SetGeofence(ctx, n.ID, []byte("null"))
	require.NoError(t, err)
	assert.Empty(t, got.Geofence)

	_, err = svc.SetGeofence(ctx, uuid.New(), []byte(blockSix))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>Well pad marker</name>
      <Point><coordinates>57,23,0</coordinates></Point>
    </Placemark>
    <Folder>
      <name>Concessions</name>
      <Placemark>
        <name>Block 6</name>
        <Polygon><outerBoundaryIs><LinearRing>
          <coordinates>56,22,0 58,22,0 58,24,0 56,24,0 56,22,0</coordinates>
        </LinearRing></outerBoundaryIs></Polygon>
      </Placemark>
      <Placemark>
        <name>Block 7</name>
        <Polygon><outerBoundaryIs><LinearRing>
          <coordinates>50,10 51,10 51,11 50,10</coordinates>
        </LinearRing></outerBoundaryIs></Polygon>
      </Placemark>
    </Folder>
  </Document>
</kml>`

func kmz(t *testing.T, kml string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("doc.kml")
	require.NoError(t, err)
	_, err = w.Write([]byte(kml))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestBoundaryFromKMZ(t *testing.T) {
	tests := []struct {
		name      string
		data      func(t *testing.T) []byte
		placemark string
		polygons  int
		wantErr   bool
	}{
		{"kmz all placemarks", func(t *testing.T) []byte { return kmz(t, sampleKML) }, "", 2, false},
		{"kmz named placemark", func(t *testing.T) []byte { return kmz(t, sampleKML) }, "block 6", 1, false},
		{"plain kml", func(*testing.T) []byte { return []byte(sampleKML) }, "", 2, false},
		{"unknown placemark", func(*testing.T) []byte { return []byte(sampleKML) }, "Block 9", 0, true},
		{"not an archive", func(*testing.T) []byte { return []byte("PK garbage") }, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp, err := BoundaryFromKMZ(tt.data(t), tt.placemark)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, mp, tt.polygons)
		})
	}
}

func TestService_ImportBoundary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	n, err := svc.Create(ctx, &models.LocationNode{Country: "Oman", Project: ptr("Block 6")})
	require.NoError(t, err)

	_, err = svc.ImportBoundary(ctx, n.ID, kmz(t, sampleKML), "Block 6")
	require.NoError(t, err)

	got, err := svc.Locate(ctx, 23, 57)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	_, err = svc.ImportBoundary(ctx, n.ID, []byte(sampleKML), "Block 9")
	assert.ErrorIs(t, err, ErrInvalidNode)
}
