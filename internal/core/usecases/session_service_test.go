package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/layers"
	"github.com/samirrijal/mapview/internal/core/mapsurface"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

func sessionDefaults() usecases.SessionDefaults {
	return usecases.SessionDefaults{
		Surface: mapsurface.Options{
			Center:      cancun,
			Zoom:        13,
			Tile:        domain.TileLayer{URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", MaxZoom: 19},
			AnchorLabel: "Centro de Cancún",
			ResizeDelay: 200 * time.Millisecond,
		},
		Style:            layers.Style{RouteColor: "#1D64F2", RouteWeight: 4, FitPadding: 40, SingleZoom: 14},
		Language:         "es",
		Width:            800,
		Height:           500,
		OriginLabel:      "Origen: ",
		DestinationLabel: "Destino: ",
	}
}

func newSessionService(factory ports.WidgetFactory) *usecases.SessionService {
	return usecases.NewSessionService(
		&mockGeocoder{geocode: places(knownPlaces)},
		&mockRouter{route: straightRoute},
		factory,
		&mockPublisher{},
		sessionDefaults(),
		nil,
	)
}

func TestSessionService_MountAndWait(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))
	defer svc.Close()

	snap, err := svc.Mount(context.Background(), usecases.MountRequest{
		Inputs: domain.Inputs{Origin: "Playa Delfines", Destination: "La Isla Shopping Village"},
		Wait:   true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "es", snap.Language)
	assert.Equal(t, domain.StateReadyIdle, snap.State)
	require.NotNil(t, snap.Container)
	assert.Equal(t, "map-"+snap.ID, snap.Container.ID)
	assert.Equal(t, 800, snap.Container.Width)
	assert.True(t, snap.Container.Bordered)
	require.NotNil(t, snap.Anchor)
	assert.Equal(t, "Centro de Cancún", snap.Anchor.Label)
	assert.NotNil(t, snap.Origin)
	assert.NotNil(t, snap.Destination)
	assert.NotNil(t, snap.Route)
	assert.Equal(t, 1, svc.Count())
}

func TestSessionService_MountWithoutWidgetLibrary(t *testing.T) {
	svc := newSessionService(nil)
	defer svc.Close()

	snap, err := svc.Mount(context.Background(), usecases.MountRequest{Inputs: domain.Inputs{Origin: "A"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnready, snap.State)
	assert.Nil(t, snap.Viewport)
	assert.Nil(t, snap.Origin)
}

func TestSessionService_MountCustomSize(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))
	defer svc.Close()

	snap, err := svc.Mount(context.Background(), usecases.MountRequest{Width: 1024, Height: 768})
	require.NoError(t, err)
	assert.Equal(t, 1024, snap.Viewport.Width)
	assert.Equal(t, 768, snap.Viewport.Height)
}

func TestSessionService_MountUnsupportedLanguage(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))
	_, err := svc.Mount(context.Background(), usecases.MountRequest{Language: "it"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedLang)
	assert.Zero(t, svc.Count())
}

func TestSessionService_Update(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))
	defer svc.Close()

	snap, err := svc.Mount(context.Background(), usecases.MountRequest{})
	require.NoError(t, err)

	snap, err = svc.Update(context.Background(), snap.ID, domain.Inputs{Destination: "La Isla Shopping Village"}, true)
	require.NoError(t, err)
	require.NotNil(t, snap.Destination)
	assert.Equal(t, "Destino: La Isla Shopping Village", snap.Destination.Label)
	assert.Equal(t, 14, snap.Viewport.Zoom)

	_, err = svc.Update(context.Background(), "missing", domain.Inputs{}, false)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_ListOrdered(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))
	defer svc.Close()

	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := svc.Mount(context.Background(), usecases.MountRequest{})
		require.NoError(t, err)
		ids = append(ids, snap.ID)
		time.Sleep(time.Millisecond)
	}

	list := svc.List()
	require.Len(t, list, 3)
	for i, s := range list {
		assert.Equal(t, ids[i], s.ID)
	}
}

func TestSessionService_Language(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))
	defer svc.Close()

	snap, err := svc.Mount(context.Background(), usecases.MountRequest{Language: "pt"})
	require.NoError(t, err)

	lang, err := svc.NextLanguage(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	require.NoError(t, svc.SetLanguage(snap.ID, "fr"))
	got, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "fr", got.Language)

	_, err = svc.NextLanguage("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_Unmount(t *testing.T) {
	svc := newSessionService(widget.NewFactory(19))

	snap, err := svc.Mount(context.Background(), usecases.MountRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.Unmount(snap.ID))
	assert.ErrorIs(t, svc.Unmount(snap.ID), domain.ErrSessionNotFound)
	_, err = svc.Get(snap.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Zero(t, svc.Count())
}

func TestSessionService_WaitRespectsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	svc := usecases.NewSessionService(
		&mockGeocoder{geocode: func(ctx context.Context, q string) (*domain.GeocodeResult, error) {
			<-block
			return nil, nil
		}},
		&mockRouter{},
		widget.NewFactory(19),
		nil,
		sessionDefaults(),
		nil,
	)
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := svc.Mount(ctx, usecases.MountRequest{Inputs: domain.Inputs{Origin: "A"}, Wait: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StateResolving, snap.State)
}
