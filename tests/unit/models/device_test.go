package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// Device model requirements:
// 1. CPUFreq and DataRate must be strictly positive
// 2. Energy coefficient, radio power and load must be non-negative
// 3. The task queue ties tasks to their originating device

type DeviceTestSuite struct {
	suite.Suite
}

func (suite *DeviceTestSuite) validDevice() models.Device {
	return models.Device{
		ID:                0,
		CPUFreq:           1.5e9,
		EnergyCoefficient: 1e-27,
		TxPower:           0.3,
		DataRate:          10e6,
	}
}

func (suite *DeviceTestSuite) TestValidation() {
	testCases := []struct {
		name          string
		mutate        func(*models.Device)
		expectValid   bool
		expectMessage string
	}{
		{
			name:        "reference_device_valid",
			mutate:      func(d *models.Device) {},
			expectValid: true,
		},
		{
			name:        "zero_tx_power_valid",
			mutate:      func(d *models.Device) { d.TxPower = 0 },
			expectValid: true,
		},
		{
			name:          "zero_cpu_invalid",
			mutate:        func(d *models.Device) { d.CPUFreq = 0 },
			expectValid:   false,
			expectMessage: "CPUFreq must be > 0",
		},
		{
			name:          "zero_data_rate_invalid",
			mutate:        func(d *models.Device) { d.DataRate = 0 },
			expectValid:   false,
			expectMessage: "DataRate must be > 0",
		},
		{
			name:          "negative_coefficient_invalid",
			mutate:        func(d *models.Device) { d.EnergyCoefficient = -1e-27 },
			expectValid:   false,
			expectMessage: "EnergyCoefficient must be non-negative",
		},
		{
			name:          "negative_load_invalid",
			mutate:        func(d *models.Device) { d.CurrentLoad = -1 },
			expectValid:   false,
			expectMessage: "CurrentLoad must be non-negative",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			device := suite.validDevice()
			tc.mutate(&device)

			err := device.Validate()
			if tc.expectValid {
				assert.NoError(suite.T(), err)
			} else {
				assert.Error(suite.T(), err)
				if tc.expectMessage != "" {
					assert.Contains(suite.T(), err.Error(), tc.expectMessage)
				}
			}
		})
	}
}

func (suite *DeviceTestSuite) TestTaskQueue() {
	device := suite.validDevice()
	assert.Empty(suite.T(), device.Tasks)

	t1 := &models.Task{ID: 1, ComputingCycles: 1e9}
	t2 := &models.Task{ID: 2, ComputingCycles: 2e9}
	device.AddTask(t1)
	device.AddTask(t2)

	assert.Len(suite.T(), device.Tasks, 2)
	assert.Same(suite.T(), t1, device.Tasks[0])
	assert.Same(suite.T(), t2, device.Tasks[1])
}

func (suite *DeviceTestSuite) TestResetLoad() {
	device := suite.validDevice()
	device.CurrentLoad = 3e9

	device.ResetLoad()
	assert.Zero(suite.T(), device.CurrentLoad)
}

func (suite *DeviceTestSuite) TestCloneCopiesQueue() {
	device := suite.validDevice()
	device.AddTask(&models.Task{ID: 1, ComputingCycles: 1e9})

	clone := device.Clone()
	assert.Len(suite.T(), clone.Tasks, 1)
	assert.NotSame(suite.T(), device.Tasks[0], clone.Tasks[0])

	clone.Tasks[0].ComputingCycles = 9e9
	assert.Equal(suite.T(), 1e9, device.Tasks[0].ComputingCycles)
}

func TestDeviceTestSuite(t *testing.T) {
	suite.Run(t, new(DeviceTestSuite))
}
