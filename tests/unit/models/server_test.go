package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// Server model requirements:
// 1. CPUFreq must be strictly positive
// 2. Bandwidth, energy coefficient and load must be non-negative
// 3. The task list is append-only bookkeeping of accepted work

type ServerTestSuite struct {
	suite.Suite
}

func (suite *ServerTestSuite) validServer() models.Server {
	return models.Server{
		ID:                0,
		CPUFreq:           8e9,
		EnergyCoefficient: 1.5e-27,
		Bandwidth:         75e6,
	}
}

func (suite *ServerTestSuite) TestValidation() {
	testCases := []struct {
		name          string
		mutate        func(*models.Server)
		expectValid   bool
		expectMessage string
	}{
		{
			name:        "reference_server_valid",
			mutate:      func(s *models.Server) {},
			expectValid: true,
		},
		{
			name:        "zero_bandwidth_valid",
			mutate:      func(s *models.Server) { s.Bandwidth = 0 },
			expectValid: true,
		},
		{
			name:          "zero_cpu_invalid",
			mutate:        func(s *models.Server) { s.CPUFreq = 0 },
			expectValid:   false,
			expectMessage: "CPUFreq must be > 0",
		},
		{
			name:          "negative_bandwidth_invalid",
			mutate:        func(s *models.Server) { s.Bandwidth = -1 },
			expectValid:   false,
			expectMessage: "Bandwidth must be non-negative",
		},
		{
			name:          "negative_load_invalid",
			mutate:        func(s *models.Server) { s.CurrentLoad = -5 },
			expectValid:   false,
			expectMessage: "CurrentLoad must be non-negative",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			server := suite.validServer()
			tc.mutate(&server)

			err := server.Validate()
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

func (suite *ServerTestSuite) TestBookkeepingAndReset() {
	server := suite.validServer()
	server.AddTask(&models.Task{ID: 7, ComputingCycles: 4e9})
	server.CurrentLoad = 4e9

	server.ResetLoad()
	assert.Zero(suite.T(), server.CurrentLoad)
	// Resetting load does not touch the accepted-work list
	assert.Len(suite.T(), server.Tasks, 1)
}

func (suite *ServerTestSuite) TestCloneCopiesTasks() {
	server := suite.validServer()
	server.AddTask(&models.Task{ID: 7, ComputingCycles: 4e9})

	clone := server.Clone()
	assert.NotSame(suite.T(), server.Tasks[0], clone.Tasks[0])
	clone.Tasks[0].ID = 99
	assert.Equal(suite.T(), 7, server.Tasks[0].ID)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
