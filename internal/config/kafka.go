package config

type KafkaConfig struct {
	BrokerList []string `yaml:"brokers"`
	EvTopic    string   `yaml:"sync-events-topic"`
}

func (s *KafkaConfig) Brokers() []string {
	return s.BrokerList
}

func (s *KafkaConfig) SyncEventsTopic() string {
	return s.EvTopic
}

func (s *KafkaConfig) Enabled() bool {
	return len(s.BrokerList) > 0
}
