package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in    string
		kind  Kind
		test  bool
		local bool
	}{
		{"ec2", EC2, false, false},
		{"ec2_test", EC2, true, false},
		{"local", Local, false, true},
		{"local_test", Local, true, true},
		{"local_docker", LocalDocker, false, true},
		{"local_docker_test", LocalDocker, true, true},
	}

	for _, test := range tests {
		m, err := ParseMode(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.kind, m.Kind, test.in)
		assert.Equal(t, test.test, m.Test, test.in)
		assert.Equal(t, test.local, m.IsLocal(), test.in)
		assert.Equal(t, test.in, m.String())
	}

	_, err := ParseMode("gce")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestConfigureEC2(t *testing.T) {
	subnets := map[string]SubnetInfo{
		"us-west-1a": {SubnetID: "subnet-a", Groups: []string{"sg-1"}},
		"us-west-1b": {},
	}

	config, vCPU, err := ConfigureEC2("c4.8xlarge", "us-west-1a", subnets)
	require.NoError(t, err)
	assert.Equal(t, 36, vCPU)
	assert.Equal(t, "c4.8xlarge", config.InstanceType)
	assert.Equal(t, "1.993", config.SpotPrice)
	require.Len(t, config.NetworkInterfaces, 1)
	assert.Equal(t, NetworkInterface{
		SubnetId:                 "subnet-a",
		Groups:                   []string{"sg-1"},
		DeviceIndex:              0,
		AssociatePublicIpAddress: true,
	}, config.NetworkInterfaces[0])

	_, vCPU, err = ConfigureEC2("c4.large", "us-west-1a", subnets)
	require.NoError(t, err)
	assert.Equal(t, 2, vCPU)

	_, _, err = ConfigureEC2("m5.large", "us-west-1a", subnets)
	assert.Error(t, err)
	_, _, err = ConfigureEC2("c4.large", "eu-west-1a", subnets)
	assert.Error(t, err)
	_, _, err = ConfigureEC2("c4.large", "us-west-1b", subnets)
	assert.Error(t, err)
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	assert.NoError(t, s.Validate())

	bad := s
	bad.Mode = "cloud"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownMode)

	bad = s
	bad.Instance = "t2.micro"
	assert.Error(t, bad.Validate())

	bad = s
	bad.Mode = "local_docker"
	bad.DockerImage = ""
	assert.Error(t, bad.Validate())

	bad = s
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())

	bad = s
	bad.Trainer = ""
	assert.Error(t, bad.Validate())
}
