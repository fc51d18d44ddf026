package readprop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
)

func TestLearnDeviceReplacesDeviceAtSameAddress(t *testing.T) {
	f := newFixture(t)
	f.reader.LearnDevice(device(1, "10.0.0.1:47808"))
	f.reader.LearnDevice(device(2, "10.0.0.2:47808"))

	f.reader.LearnDevice(device(3, "10.0.0.1:47808"))

	devices := f.reader.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, model.DeviceID(2), devices[0].ID)
	assert.Equal(t, model.DeviceID(3), devices[1].ID)

	dev, ok := f.reader.DeviceByAddress("10.0.0.1:47808")
	require.True(t, ok)
	assert.Equal(t, model.DeviceID(3), dev.ID)
}

func TestLearnDeviceUpdatesAddress(t *testing.T) {
	f := newFixture(t)
	f.reader.LearnDevice(device(1, "10.0.0.1:47808"))
	f.reader.LearnDevice(device(1, "10.0.0.7:47808"))

	dev, err := f.reader.Device(context.Background(), 1, discoveryTimeout)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7:47808", dev.Address)
	assert.Len(t, f.reader.Devices(), 1)
	assert.Equal(t, 0, f.dir.broadcasts(1))
}

func TestDeviceHandlesAreCopies(t *testing.T) {
	f := newFixture(t)
	f.reader.LearnDevice(device(1, "10.0.0.1:47808"))

	dev, err := f.reader.Device(context.Background(), 1, discoveryTimeout)
	require.NoError(t, err)
	dev.Address = "mutated"

	again, err := f.reader.Device(context.Background(), 1, discoveryTimeout)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:47808", again.Address)
}

func TestEvictDevice(t *testing.T) {
	f := newFixture(t, device(1, "10.0.0.1:47808"))
	f.reader.LearnDevice(device(1, "10.0.0.1:47808"))

	assert.True(t, f.reader.EvictDevice(1))
	assert.False(t, f.reader.EvictDevice(1))

	_, err := f.reader.Device(context.Background(), 1, discoveryTimeout)
	require.NoError(t, err)
	assert.Equal(t, 1, f.dir.broadcasts(1), "evicted handle is rediscovered")
}

func TestDeviceDiscoveryTimeout(t *testing.T) {
	f := newFixture(t)

	_, err := f.reader.Device(context.Background(), 42, discoveryTimeout/4)
	assert.ErrorIs(t, err, discovery.ErrDiscoveryTimeout)
}

func TestStartCachesUnsolicitedAnnouncements(t *testing.T) {
	f := newFixture(t)

	f.dir.Announce(device(7, "10.0.0.7:47808"))
	assert.Empty(t, f.reader.Devices(), "not listening yet")

	f.reader.Start()
	f.reader.Start()
	f.dir.Announce(device(7, "10.0.0.7:47808"))
	require.Len(t, f.reader.Devices(), 1)

	f.reader.Stop()
	f.reader.Stop()
	f.dir.Announce(device(8, "10.0.0.8:47808"))
	assert.Len(t, f.reader.Devices(), 1)

	_, err := f.reader.Device(context.Background(), 7, discoveryTimeout)
	require.NoError(t, err)
	assert.Equal(t, 0, f.dir.broadcasts(7))
}
