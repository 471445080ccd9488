package uio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) TestDefaultConfigIsValid() {
	config := DefaultConfig()
	s.Require().NoError(VerifyConfig(config))
	s.Equal("/sys", config.SysfsRoot)
	s.Equal("/dev", config.DevRoot)
}

func (s *ConfigTestSuite) TestVerifyConfig() {
	s.Require().Error(VerifyConfig(nil))

	config := DefaultConfig()
	config.SysfsRoot = ""
	s.Require().Error(VerifyConfig(config))

	config = DefaultConfig()
	config.OpenRetryTimeout = -time.Second
	s.Require().Error(VerifyConfig(config))

	config = DefaultConfig()
	config.OpenRetryInterval = 0
	s.Require().Error(VerifyConfig(config))
	config.OpenRetryTimeout = 0
	s.Require().NoError(VerifyConfig(config))

	config = DefaultConfig()
	config.IRQWorkers = 0
	s.Require().Error(VerifyConfig(config))

	config = DefaultConfig()
	config.IRQQueueHint = 0
	s.Require().Error(VerifyConfig(config))

	config = DefaultConfig()
	config.IRQPollInterval = 0
	s.Require().Error(VerifyConfig(config))
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
