package experiment

import (
	"fmt"
	"sort"
	"strconv"
)

// InstanceInfo describes an EC2 instance type
type InstanceInfo struct {
	VCPU  int
	Price float64 // Spot bid in USD per hour
}

var instanceInfo = map[string]InstanceInfo{
	"c4.large":   {VCPU: 2, Price: 0.124},
	"c4.xlarge":  {VCPU: 4, Price: 0.249},
	"c4.2xlarge": {VCPU: 8, Price: 0.498},
	"c4.4xlarge": {VCPU: 16, Price: 0.997},
	"c4.8xlarge": {VCPU: 36, Price: 1.993},
}

// Instances returns the names of all known instance types in sorted
// order
func Instances() []string {
	names := make([]string, 0, len(instanceInfo))
	for name := range instanceInfo {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instance returns the description of an instance type
func Instance(name string) (InstanceInfo, error) {
	info, ok := instanceInfo[name]
	if !ok {
		return InstanceInfo{}, fmt.Errorf("instance: unknown instance "+
			"type %q", name)
	}
	return info, nil
}

// SubnetInfo identifies the subnet and security groups of an
// availability zone
type SubnetInfo struct {
	SubnetID string   `mapstructure:"subnet_id" yaml:"subnet_id" json:"subnet_id"`
	Groups   []string `mapstructure:"groups" yaml:"groups" json:"groups"`
}

// NetworkInterface is a network interface of a spot instance request
type NetworkInterface struct {
	SubnetId                 string   `yaml:"SubnetId" json:"SubnetId"`
	Groups                   []string `yaml:"Groups" json:"Groups"`
	DeviceIndex              int      `yaml:"DeviceIndex" json:"DeviceIndex"`
	AssociatePublicIpAddress bool     `yaml:"AssociatePublicIpAddress" json:"AssociatePublicIpAddress"`
}

// AWSConfig describes the spot instance that a job runs on
type AWSConfig struct {
	InstanceType      string             `yaml:"instance_type" json:"instance_type"`
	SpotPrice         string             `yaml:"spot_price" json:"spot_price"`
	NetworkInterfaces []NetworkInterface `yaml:"network_interfaces" json:"network_interfaces"`
}

// ConfigureEC2 returns the AWSConfig of jobs running on instance in
// the availability zone subnet, together with the number of vCPUs of
// the instance
func ConfigureEC2(instance, subnet string,
	subnets map[string]SubnetInfo) (AWSConfig, int, error) {
	info, err := Instance(instance)
	if err != nil {
		return AWSConfig{}, 0, fmt.Errorf("configureEC2: %v", err)
	}

	s, ok := subnets[subnet]
	if !ok {
		return AWSConfig{}, 0, fmt.Errorf("configureEC2: unknown subnet %q",
			subnet)
	}
	if s.SubnetID == "" {
		return AWSConfig{}, 0, fmt.Errorf("configureEC2: subnet %q has no "+
			"subnet ID", subnet)
	}

	return AWSConfig{
		InstanceType: instance,
		SpotPrice:    strconv.FormatFloat(info.Price, 'f', -1, 64),
		NetworkInterfaces: []NetworkInterface{{
			SubnetId:                 s.SubnetID,
			Groups:                   append([]string(nil), s.Groups...),
			DeviceIndex:              0,
			AssociatePublicIpAddress: true,
		}},
	}, info.VCPU, nil
}
