package config

type AppConfig struct {
	ProfileName string `yaml:"profile"`
	MetricsAddr string `yaml:"metrics-addr"`
}

func (s *AppConfig) Profile() string {
	return s.ProfileName
}

func (s *AppConfig) MetricsAddress() string {
	return s.MetricsAddr
}
