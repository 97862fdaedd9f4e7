package hierarchy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
	"p9e.in/rigops/utils"
)

var (
	ErrCountryRequired = errors.New("country is required")
	ErrInvalidNode     = errors.New("invalid hierarchy entry")
	ErrInvalidPoint    = errors.New("invalid coordinates")
)

type Service struct {
	locations store.LocationStore
	log       zerolog.Logger
}

func NewService(locations store.LocationStore, log zerolog.Logger) *Service {
	return &Service{locations: locations, log: log}
}

// List returns the nested tree together with the rows it was built from.
func (s *Service) List(ctx context.Context) (Tree, []models.LocationNode, error) {
	nodes, err := s.locations.ListLocations(ctx)
	if err != nil {
		return nil, nil, err
	}
	return Build(nodes), nodes, nil
}

// Create validates and inserts one node. Blank optional levels are stored as
// NULL so the uniqueness rule treats them as absent.
func (s *Service) Create(ctx context.Context, node *models.LocationNode) (*models.LocationNode, error) {
	node.Country = strings.TrimSpace(node.Country)
	if node.Country == "" {
		return nil, ErrCountryRequired
	}
	node.Project = models.StringPtr(deref(node.Project))
	node.Unit = models.StringPtr(deref(node.Unit))
	node.UnitNumber = models.StringPtr(deref(node.UnitNumber))
	if _, err := node.Depth(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	if len(node.Geofence) > 0 {
		if err := utils.ValidateGeofence(node.Geofence); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
		}
	}
	node.ID = uuid.Nil
	node.IsActive = true

	if err := s.locations.CreateLocation(ctx, node); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", node.ID.String()).Str("country", node.Country).Msg("hierarchy entry created")
	return node, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.locations.DeleteLocation(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id.String()).Msg("hierarchy entry deleted")
	return nil
}

// SetGeofence replaces the node's boundary. An empty or null body clears it.
func (s *Service) SetGeofence(ctx context.Context, id uuid.UUID, raw []byte) (*models.LocationNode, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return s.locations.UpdateLocationGeofence(ctx, id, nil)
	}

	area, err := utils.ParseGeofence(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	encoded, err := utils.GeofenceJSON(area)
	if err != nil {
		return nil, err
	}
	return s.locations.UpdateLocationGeofence(ctx, id, encoded)
}

// ImportBoundary sets the node's geofence from the polygons of a KMZ or KML
// file, optionally restricted to one placemark name.
func (s *Service) ImportBoundary(ctx context.Context, id uuid.UUID, file []byte, placemark string) (*models.LocationNode, error) {
	area, err := BoundaryFromKMZ(file, strings.TrimSpace(placemark))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	encoded, err := utils.GeofenceJSON(area)
	if err != nil {
		return nil, err
	}
	return s.SetGeofence(ctx, id, encoded)
}

// Locate returns the deepest active node whose geofence contains the point.
// Earlier rows win ties at the same depth.
func (s *Service) Locate(ctx context.Context, lat, lng float64) (*models.LocationNode, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, ErrInvalidPoint
	}
	nodes, err := s.locations.ListLocations(ctx)
	if err != nil {
		return nil, err
	}

	var best *models.LocationNode
	bestDepth := 0
	for i := range nodes {
		n := &nodes[i]
		if len(n.Geofence) == 0 {
			continue
		}
		area, err := utils.ParseGeofence(n.Geofence)
		if err != nil {
			s.log.Warn().Err(err).Str("id", n.ID.String()).Msg("skipping unreadable geofence")
			continue
		}
		if !utils.IsPointInGeofence(area, lat, lng) {
			continue
		}
		depth, _ := n.Depth()
		if depth > bestDepth {
			best, bestDepth = n, depth
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
