package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacstack/bacnet-go/pkg/cache"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
)

const testConfig = `
discovery-timeout: 2s
max-concurrent-devices: 4
devices:
  - instance: 1200
    address: 10.0.0.20:47808
  - instance: 1300
    address: 10.0.0.30:47808
    read-multiple: false
    max-apdu: 206
policies:
  property:
    - property: present-value
      policy: 10s
`

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	fc, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, fc.MaxConcurrentDevices)
	assert.Equal(t, "2s", fc.DiscoveryTimeout.String())
	require.Len(t, fc.Devices, 2)
	require.NotNil(t, fc.Policies)

	dev, err := fc.Devices[0].remoteDevice()
	require.NoError(t, err)
	assert.Equal(t, model.DeviceID(1200), dev.ID)
	assert.True(t, dev.ReadMultiple)
	assert.Equal(t, uint32(discovery.DefaultMaxAPDU), dev.MaxAPDU)

	dev, err = fc.Devices[1].remoteDevice()
	require.NoError(t, err)
	assert.False(t, dev.ReadMultiple)
	assert.Equal(t, uint32(206), dev.MaxAPDU)
}

func TestLoadFileConfigEmptyPath(t *testing.T) {
	fc, err := loadFileConfig("")
	require.NoError(t, err)
	assert.Empty(t, fc.Devices)
}

func TestDeviceEntryValidation(t *testing.T) {
	_, err := DeviceEntry{Instance: model.MaxInstance + 1, Address: "10.0.0.1:47808"}.remoteDevice()
	assert.Error(t, err)

	_, err = DeviceEntry{Instance: 5}.remoteDevice()
	assert.Error(t, err)
}

func TestClientTLSConfig(t *testing.T) {
	cfg, err := clientTLSConfig("", false)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = clientTLSConfig("", true)
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)

	bad := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))
	_, err = clientTLSConfig(bad, false)
	assert.Error(t, err)
}

func TestApplyPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
property:
  - device: 1200
    property: present-value
    policy: never-expire
`), 0o600))

	policies := cache.NewPolicies()
	require.NoError(t, applyPolicyFile(path, policies))
	ai := model.NewObjectIdentifier(model.ObjectAnalogInput, 1)
	assert.Equal(t, cache.NeverExpire, policies.PropertyPolicyOrDefault(1200, ai, model.PropPresentValue))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("property:\n  - policy: sometimes\n"), 0o600))
	assert.Error(t, applyPolicyFile(bad, cache.NewPolicies()))

	assert.Error(t, applyPolicyFile(filepath.Join(dir, "missing.yaml"), cache.NewPolicies()))
}
