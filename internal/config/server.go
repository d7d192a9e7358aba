package config

type ServerConfig struct {
	ListenAddr string `yaml:"addr"`
}

func (s *ServerConfig) Addr() string {
	return s.ListenAddr
}
