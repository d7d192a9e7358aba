package config

type StorageConfig struct {
	DataDir string `yaml:"dir"`
}

func (s *StorageConfig) Dir() string {
	return s.DataDir
}
